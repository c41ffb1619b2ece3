package user

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/apiwada/portal/core"
)

var (
	// password policy
	pwdLen     = 8
	pwdLenTag  = "pwdlen"
	pwdLenText = fmt.Sprintf("password must be exactly %d characters long", pwdLen)

	pwdSpecialChars = "@#$%&"
	pwdSpecialTag   = "pwdspecial"
	pwdSpecialText  = "password must include at least one special character (@, #, $, %, &)"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your name or contact number"

	// a profile picture arrives as a base64 data URL; 1MB of raw image
	// grows to ~1.4MB once encoded
	profilePicMaxLen  = 1400000
	profilePicTag     = "picmaxsize"
	profilePicText    = "image must be less than 1MB"
	profilePicPrefix  = "data:image/"
	profilePicBadTag  = "picformat"
	profilePicBadText = "profile picture must be an image data URL"
)

func init() {
	core.Validate.RegisterStructValidation(userStructValidation, NewUser{})
	core.Validate.RegisterStructValidation(userStructValidation, UpdateProfile{})
	core.Validate.RegisterStructValidation(userStructValidation, ResetPassword{})

	core.RegisterCustomTranslation(pwdLenTag, pwdLenText)
	core.RegisterCustomTranslation(pwdSpecialTag, pwdSpecialText)
	core.RegisterCustomTranslation(pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(profilePicTag, profilePicText)
	core.RegisterCustomTranslation(profilePicBadTag, profilePicBadText)
}

// userStructValidation does struct level validation on registration and
// profile/password payloads.
func userStructValidation(sl validator.StructLevel) {
	switch data := sl.Current().Interface().(type) {
	case NewUser:
		validatePassword(data.Password, data.Name, data.Contact, sl)
	case UpdateProfile:
		if data.Password != "" {
			validatePassword(data.Password, data.Name, "", sl)
		}
		validateProfilePic(data.ProfilePic, sl)
	case ResetPassword:
		if data.Password != "" {
			validatePassword(data.Password, "", "", sl)
		}
	}
}

// validatePassword applies the password policy:
// - exactly 8 characters
// - at least 1 special character of @#$%&
// - not similar to the student's name or contact number
func validatePassword(pwd, name, contact string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	if len(pwd) != pwdLen {
		reportErr(pwdLenTag)
		return
	}

	if !strings.ContainsAny(pwd, pwdSpecialChars) {
		reportErr(pwdSpecialTag)
		return
	}

	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(attr, "")).QuickRatio()
	}
	if getRatio(pwd, name) >= pwdMaxSim || getRatio(pwd, contact) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
	}
}

func validateProfilePic(pic string, sl validator.StructLevel) {
	if pic == "" {
		return
	}
	reportErr := func(tag string) {
		sl.ReportError(pic, "profilePic", "ProfilePic", tag, "")
	}
	if !strings.HasPrefix(pic, profilePicPrefix) {
		reportErr(profilePicBadTag)
		return
	}
	if len(pic) > profilePicMaxLen {
		reportErr(profilePicTag)
	}
}
