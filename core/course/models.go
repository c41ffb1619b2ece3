package course

import (
	"github.com/google/uuid"

	"github.com/apiwada/portal/core"
)

type CourseVideo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Course struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Price           float64       `json:"price"`
	Thumbnail       string        `json:"thumbnail"`
	Videos          []CourseVideo `json:"videos"`
	DurationMinutes int           `json:"durationMinutes"`
}

// Replace is the admin bulk-save payload: the whole catalog, written wholesale.
type Replace struct {
	Courses []Course `json:"courses" validate:"dive"`
}

func (r *Replace) Validate() error {
	for i := range r.Courses {
		c := &r.Courses[i]
		c.Title = core.CleanString(c.Title)
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		for j := range c.Videos {
			if c.Videos[j].ID == "" {
				c.Videos[j].ID = uuid.New().String()
			}
		}
	}
	return core.Validate.Struct(r)
}
