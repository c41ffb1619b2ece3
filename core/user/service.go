package user

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/apiwada/portal/core"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrContactExists = errors.New("this contact number is already registered")
)

type (
	// Repository is the users collection of the document store. Documents are
	// read and written whole; LookupUserByContact is a collection scan.
	Repository interface {
		// RegisterUser atomically advances the student counter and creates the
		// user document keyed by the issued index number. The counter read,
		// increment and both writes are a single transaction; on a conflicting
		// concurrent registration the whole transaction is retried.
		RegisterUser(ctx context.Context, usr User) (User, error)
		GetUserByIndex(ctx context.Context, indexNumber string) (User, error)
		LookupUserByContact(ctx context.Context, contact string) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		// FilterUsers applies QueryFilter.Search as a substring match on
		// Name (case-insensitive), IndexNumber or Contact.
		FilterUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		// UpdateUser overwrites the whole user document; last writer wins.
		UpdateUser(ctx context.Context, usr User) (User, error)
		// SaveWatchTime folds an accumulated seconds value into the user's
		// watchTime map and persists the document.
		SaveWatchTime(ctx context.Context, indexNumber, courseID string, seconds int) error
	}

	Service interface {
		Register(ctx context.Context, nu NewUser) (User, error)
		GetByIndex(ctx context.Context, indexNumber string) (User, error)
		GetByContact(ctx context.Context, contact string) (User, error)
		QueryAll(ctx context.Context) ([]User, error)
		Filter(ctx context.Context, filter QueryFilter) ([]User, error)
		UpdateProfile(ctx context.Context, indexNumber string, up UpdateProfile) (User, error)
		ResetPassword(ctx context.Context, indexNumber, password string) (User, error)
		AddMark(ctx context.Context, indexNumber string, mark Mark) (User, error)
		ToggleCourse(ctx context.Context, indexNumber, courseID string) (User, error)
		SetWatchTime(ctx context.Context, indexNumber, courseID string, seconds int) error
		CheckContactUniqueness(ctx context.Context, contact string) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, mailSvc core.EmailService) Service {
	return &service{repo: repo, mailSvc: mailSvc}
}

func (svc *service) CheckContactUniqueness(ctx context.Context, contact string) error {
	_, err := svc.repo.LookupUserByContact(ctx, contact)
	switch errors.Cause(err) {
	case ErrNotFound:
		return nil
	case nil:
		return core.NewValidationError(ErrContactExists, core.FieldError{Field: "contact", Error: ErrContactExists.Error()})
	default:
		return err
	}
}

func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		Name:          nu.Name,
		ExamYear:      nu.ExamYear,
		School:        nu.School,
		Birthday:      nu.Birthday,
		Contact:       nu.Contact,
		Role:          RoleStudent,
		ActiveCourses: []string{},
		Marks:         []Mark{},
		WatchTime:     map[string]int{},
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	usr, err := svc.repo.RegisterUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendRegistrationMail(usr)
	return usr, nil
}

func (svc *service) GetByIndex(ctx context.Context, indexNumber string) (User, error) {
	return svc.repo.GetUserByIndex(ctx, indexNumber)
}

func (svc *service) GetByContact(ctx context.Context, contact string) (User, error) {
	return svc.repo.LookupUserByContact(ctx, core.CleanString(contact))
}

func (svc *service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter) ([]User, error) {
	return svc.repo.FilterUsers(ctx, filter)
}

func (svc *service) UpdateProfile(ctx context.Context, indexNumber string, up UpdateProfile) (User, error) {
	usr, err := svc.repo.GetUserByIndex(ctx, indexNumber)
	if err != nil {
		return User{}, err
	}
	usr.Name = up.Name
	if up.ProfilePic != "" {
		usr.ProfilePic = up.ProfilePic
	}
	if up.Password != "" {
		if err := usr.SetPassword(up.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) ResetPassword(ctx context.Context, indexNumber, password string) (User, error) {
	usr, err := svc.repo.GetUserByIndex(ctx, indexNumber)
	if err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) AddMark(ctx context.Context, indexNumber string, mark Mark) (User, error) {
	usr, err := svc.repo.GetUserByIndex(ctx, indexNumber)
	if err != nil {
		return User{}, err
	}
	usr.Marks = append(usr.Marks, mark)
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) ToggleCourse(ctx context.Context, indexNumber, courseID string) (User, error) {
	usr, err := svc.repo.GetUserByIndex(ctx, indexNumber)
	if err != nil {
		return User{}, err
	}
	if usr.IsEnrolled(courseID) {
		kept := make([]string, 0, len(usr.ActiveCourses)-1)
		for _, id := range usr.ActiveCourses {
			if id != courseID {
				kept = append(kept, id)
			}
		}
		usr.ActiveCourses = kept
	} else {
		usr.ActiveCourses = append(usr.ActiveCourses, courseID)
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetWatchTime(ctx context.Context, indexNumber, courseID string, seconds int) error {
	return svc.repo.SaveWatchTime(ctx, indexNumber, courseID, seconds)
}

func (svc *service) sendRegistrationMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: core.Conf.AdminEmail}},
		Subject:      "New student registration",
		TemplateName: "new-registration",
		TemplateData: usr,
	})
}
