package rest

import (
	"reflect"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// UserForm is the body of verify-email and send-otp.
type UserForm struct {
	UserID string `json:"userId" binding:"required,email"`
}

// OTPForm is the body of verify-otp.
type OTPForm struct {
	UserID string `json:"userId" binding:"required,email"`
	OTP    string `json:"otp" binding:"required,len=6,numeric"`
}

// CredentialsForm is the body of register, login and change-password-and-login.
type CredentialsForm struct {
	UserID   string `json:"userId" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// DefaultValidator is a lazily initialised go-playground validator reading
// the "binding" tag.
type DefaultValidator struct {
	once     sync.Once
	validate *validator.Validate
}

var _ binding.StructValidator = &DefaultValidator{}

func (v *DefaultValidator) ValidateStruct(obj any) error {
	if kindOfData(obj) != reflect.Struct {
		return nil
	}
	v.lazyinit()
	return v.validate.Struct(obj)
}

func (v *DefaultValidator) Engine() any {
	v.lazyinit()
	return v.validate
}

func (v *DefaultValidator) lazyinit() {
	v.once.Do(func() {
		v.validate = validator.New()
		v.validate.SetTagName("binding")
	})
}

func kindOfData(data any) reflect.Kind {
	value := reflect.ValueOf(data)
	if value.Kind() == reflect.Ptr {
		return value.Elem().Kind()
	}
	return value.Kind()
}
