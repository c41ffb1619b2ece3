package user

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/apiwada/portal/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// AdminIndexNumber is the synthetic index number carried by back-office
// sessions; it never exists in the users collection.
const AdminIndexNumber = "000"

type Mark struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Date  string  `json:"date"`
}

type User struct {
	IndexNumber   string         `json:"indexNumber"`
	Name          string         `json:"name"`
	ExamYear      string         `json:"examYear"`
	School        string         `json:"school"`
	Birthday      string         `json:"birthday"`
	Contact       string         `json:"contact"`
	ProfilePic    string         `json:"profilePic,omitempty"`
	Role          string         `json:"role"`
	ActiveCourses []string       `json:"activeCourses"`
	Marks         []Mark         `json:"marks"`
	WatchTime     map[string]int `json:"watchTime"`
	PasswordHash  []byte         `json:"-"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

func (u *User) IsEnrolled(courseID string) bool {
	for _, id := range u.ActiveCourses {
		if id == courseID {
			return true
		}
	}
	return false
}

// CourseWatchTime returns the persisted seconds watched for a course, 0 if none.
func (u *User) CourseWatchTime(courseID string) int {
	return u.WatchTime[courseID]
}

func (u *User) LatestMark() float64 {
	if len(u.Marks) == 0 {
		return 0
	}
	return u.Marks[len(u.Marks)-1].Score
}

func (u *User) AverageMark() float64 {
	if len(u.Marks) == 0 {
		return 0
	}
	var sum float64
	for _, m := range u.Marks {
		sum += m.Score
	}
	return sum / float64(len(u.Marks))
}

// NewAdminSession synthesizes the session User for a configured back-office
// identifier. It is never persisted and requires no store lookup.
func NewAdminSession(adminID string) User {
	return User{
		IndexNumber:   AdminIndexNumber,
		Name:          "System Admin (" + adminID + ")",
		ExamYear:      "N/A",
		School:        "ApiWada HQ",
		Birthday:      "1990-01-01",
		Contact:       adminID,
		Role:          RoleAdmin,
		ActiveCourses: []string{},
		Marks:         []Mark{},
		WatchTime:     map[string]int{},
	}
}

// NewUser contains information needed to register a new student.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
	ExamYear string `json:"examYear" validate:"required"`
	School   string `json:"school" validate:"required"`
	Birthday string `json:"birthday" validate:"required"`
	Contact  string `json:"contact" validate:"required,contact"`
}

func (nu *NewUser) Validate(ctx context.Context, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.School = core.CleanString(nu.School)
	nu.Contact = core.CleanString(nu.Contact)
	nu.ExamYear = core.CleanString(nu.ExamYear)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckContactUniqueness(ctx, nu.Contact)
}

// UpdateProfile defines what a student may change on their own account.
type UpdateProfile struct {
	Name       string `json:"name"`
	ProfilePic string `json:"profilePic"`
	Password   string `json:"password" validate:"omitempty"`
}

func (up *UpdateProfile) Validate(origUsr User) error {
	name := core.CleanString(up.Name)
	if name != "" {
		up.Name = name
	} else {
		up.Name = origUsr.Name
	}
	return core.Validate.Struct(up)
}

// ResetPassword is the admin-side password reset payload.
type ResetPassword struct {
	Password string `json:"password" validate:"required"`
}

func (rp *ResetPassword) Validate() error { return core.Validate.Struct(rp) }

// NewMark is the admin-side progress mark payload.
type NewMark struct {
	Label string  `json:"label" validate:"required"`
	Score float64 `json:"score" validate:"gte=0,lte=100"`
	Date  string  `json:"date"`
}

func (nm *NewMark) Validate() error {
	nm.Label = core.CleanString(nm.Label)
	return core.Validate.Struct(nm)
}

// CourseToggle grants the course if the student lacks it, revokes it otherwise.
type CourseToggle struct {
	CourseID string `json:"courseId" validate:"required"`
}

func (ct *CourseToggle) Validate() error {
	ct.CourseID = core.CleanString(ct.CourseID)
	return core.Validate.Struct(ct)
}

type QueryFilter struct {
	// Search does a substring match on one of Name (case-insensitive),
	// IndexNumber or Contact.
	Search string `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool { return qf.Search == "" }

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
