package settings

import (
	"time"

	"github.com/google/uuid"

	"github.com/apiwada/portal/core"
)

type FreeVideo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type LiveSession struct {
	ID              string `json:"id"`
	Thumbnail       string `json:"thumbnail"`
	Title           string `json:"title"`
	YoutubeID       string `json:"youtubeId"`
	ExamYear        string `json:"examYear"`
	StartTime       string `json:"startTime"` // RFC3339
	DurationMinutes int    `json:"durationMinutes"`
}

// ActiveAt reports whether the session is running at t. Sessions with an
// unparseable start time are never active.
func (ls LiveSession) ActiveAt(t time.Time) bool {
	start, err := time.Parse(time.RFC3339, ls.StartTime)
	if err != nil {
		return false
	}
	end := start.Add(time.Duration(ls.DurationMinutes) * time.Minute)
	return !t.Before(start) && !t.After(end)
}

type TopStudent struct {
	Name  string `json:"name"`
	Index string `json:"index"`
	Rank  int    `json:"rank"`
	Score string `json:"score,omitempty"`
}

type ExamYearStars struct {
	Year     string       `json:"year"`
	Students []TopStudent `json:"students"`
}

type HeroStat struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// SiteSettings is the singleton site-configuration document. It is always
// saved wholesale; there is no partial update.
type SiteSettings struct {
	FreeVideos       []FreeVideo   `json:"freeVideos"`
	GalleryImages    []string      `json:"galleryImages"`
	ContactEmail     string        `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone     string        `json:"contactPhone"`
	BankDetails      string        `json:"bankDetails"`
	LogoURL          string        `json:"logoUrl,omitempty"`
	BackgroundImages []string      `json:"backgroundImages,omitempty"`
	LiveSessions     []LiveSession `json:"liveSessions"`

	// hero customization
	HeroBadge      string     `json:"heroBadge"`
	HeroTitle      string     `json:"heroTitle"`
	HeroSubtitle   string     `json:"heroSubtitle"`
	HeroTutorImage string     `json:"heroTutorImage"`
	HeroStats      []HeroStat `json:"heroStats"`

	// top students leaderboard, grouped by exam year
	TopStars []ExamYearStars `json:"topStars"`
}

func (s *SiteSettings) Validate() error {
	s.ContactEmail = core.CleanString(s.ContactEmail, true /* lower */)
	for i := range s.LiveSessions {
		if s.LiveSessions[i].ID == "" {
			s.LiveSessions[i].ID = uuid.New().String()
		}
	}
	return core.Validate.Struct(s)
}
