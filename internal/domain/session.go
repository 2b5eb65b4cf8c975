package domain

// StoryStatus tells whether the current story's votes are hidden or visible.
type StoryStatus string

const (
	StoryPending  StoryStatus = "pending"
	StoryRevealed StoryStatus = "revealed"
)

// SessionData is the authoritative state of one room: who is in it and
// whether votes are revealed. One instance per room, process lifetime.
type SessionData struct {
	Participants []Participant `json:"participants"`
	StoryStatus  StoryStatus   `json:"storyStatus"`
}

func NewSessionData() SessionData {
	return SessionData{StoryStatus: StoryPending, Participants: []Participant{}}
}

// Clone returns an independent copy so callers can hand sessions across
// goroutines without sharing the participant slice.
func (s SessionData) Clone() SessionData {
	out := SessionData{StoryStatus: s.StoryStatus}
	out.Participants = make([]Participant, len(s.Participants))
	copy(out.Participants, s.Participants)
	for i, p := range out.Participants {
		if p.Vote != nil {
			v := *p.Vote
			out.Participants[i].Vote = &v
		}
	}
	return out
}

// Find returns the index of the participant with the given id, or -1.
func (s SessionData) Find(id string) int {
	for i, p := range s.Participants {
		if p.ID == id {
			return i
		}
	}
	return -1
}
