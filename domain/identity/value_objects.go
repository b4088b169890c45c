package identity

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email 值对象，不可变
type Email struct {
	value string
}

func NewEmail(email string) (Email, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRegex.MatchString(email) {
		return Email{}, ErrInvalidEmail
	}
	return Email{value: email}, nil
}

func (e Email) Value() string            { return e.value }
func (e Email) Equals(other Email) bool  { return e.value == other.value }
func (e Email) String() string           { return e.value }

// HealthScope 健康数据授权范围
type HealthScope string

const (
	ScopeSteps     HealthScope = "steps"
	ScopeWorkouts  HealthScope = "workouts"
	ScopeSleep     HealthScope = "sleep"
	ScopeHeartRate HealthScope = "heart_rate"
)

func (s HealthScope) IsValid() bool {
	switch s {
	case ScopeSteps, ScopeWorkouts, ScopeSleep, ScopeHeartRate:
		return true
	}
	return false
}
