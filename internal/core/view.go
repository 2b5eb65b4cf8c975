package core

import (
	"sort"
	"strconv"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dkarev/pokerboard/internal/domain"
)

// NoAverage is shown when no numeric votes exist for the requested group.
const NoAverage = "—"

// ParticipantView is the outbound shape of one participant. While the story
// is pending only HasVoted is populated; raw votes appear once revealed.
type ParticipantView struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Role     domain.Role  `json:"role,omitempty"`
	HasVoted bool         `json:"hasVoted"`
	Vote     *domain.Vote `json:"vote,omitempty"`
}

// Averages carries the derived means for the revealed snapshot.
type Averages struct {
	Overall string `json:"overall"`
	Dev     string `json:"dev"`
	QA      string `json:"qa"`
}

// Snapshot is the read model pushed to clients. It is recomputed from the
// session on every broadcast and never stored.
type Snapshot struct {
	Participants []ParticipantView  `json:"participants"`
	StoryStatus  domain.StoryStatus `json:"storyStatus"`
	Averages     *Averages          `json:"averages,omitempty"`
}

// SortForDisplay orders participants for presentation: grouped by role
// priority (dev, qa, unspecified), then by name while pending, or by vote
// weight descending with name as tie-break once revealed. Name comparison is
// collation-based, not byte order.
func SortForDisplay(s domain.SessionData) domain.SessionData {
	s = s.Clone()
	revealed := s.StoryStatus == domain.StoryRevealed
	coll := collate.New(language.Und, collate.Loose)

	sort.SliceStable(s.Participants, func(i, j int) bool {
		a, b := s.Participants[i], s.Participants[j]
		if a.Role.Priority() != b.Role.Priority() {
			return a.Role.Priority() < b.Role.Priority()
		}
		if revealed {
			if wa, wb := domain.Weight(a.Vote), domain.Weight(b.Vote); wa != wb {
				return wa > wb
			}
		}
		return coll.CompareString(a.Name, b.Name) < 0
	})
	return s
}

// Average is the mean of all numeric votes in the room. "?"/"coffee" and
// absent votes count for neither numerator nor denominator.
func Average(s domain.SessionData) string {
	return average(s, func(domain.Participant) bool { return true })
}

// AverageForRole is Average restricted to one role.
func AverageForRole(s domain.SessionData, role domain.Role) string {
	return average(s, func(p domain.Participant) bool { return p.Role == role })
}

func average(s domain.SessionData, keep func(domain.Participant) bool) string {
	var sum float64
	var n int
	for _, p := range s.Participants {
		if !keep(p) {
			continue
		}
		if v, ok := domain.Numeric(p.Vote); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return NoAverage
	}
	avg := sum / float64(n)
	if avg == float64(int64(avg)) {
		return strconv.FormatInt(int64(avg), 10)
	}
	return strconv.FormatFloat(avg, 'f', 1, 64)
}

// BuildSnapshot sorts the session and converts it to the outbound read
// model, hiding vote values (and averages, which would leak them) while the
// story is still pending.
func BuildSnapshot(s domain.SessionData) Snapshot {
	sorted := SortForDisplay(s)
	revealed := sorted.StoryStatus == domain.StoryRevealed

	out := Snapshot{
		Participants: make([]ParticipantView, 0, len(sorted.Participants)),
		StoryStatus:  sorted.StoryStatus,
	}
	for _, p := range sorted.Participants {
		pv := ParticipantView{
			ID:       p.ID,
			Name:     p.Name,
			Role:     p.Role,
			HasVoted: p.Vote != nil,
		}
		if revealed && p.Vote != nil {
			v := *p.Vote
			pv.Vote = &v
		}
		out.Participants = append(out.Participants, pv)
	}
	if revealed {
		out.Averages = &Averages{
			Overall: Average(sorted),
			Dev:     AverageForRole(sorted, domain.RoleDev),
			QA:      AverageForRole(sorted, domain.RoleQA),
		}
	}
	return out
}
