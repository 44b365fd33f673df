package services

import (
	"fmt"
	"math/rand"
	"time"
)

// CaptchaService hands out small arithmetic problems for the signup gate.
// The answer is kept in the session, never sent to the client.
type CaptchaService struct {
	rnd *rand.Rand
}

func NewCaptchaService() *CaptchaService {
	return &CaptchaService{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateMathProblem returns a display string (e.g. "7 + 4") and the
// integer answer to store in the session.
func (s *CaptchaService) GenerateMathProblem() (string, int) {
	a := s.rnd.Intn(11) + 2 // 2-12
	b := s.rnd.Intn(11) + 2

	if s.rnd.Intn(2) == 0 {
		return fmt.Sprintf("%d + %d", a, b), a + b
	}
	// Keep subtraction results non-negative.
	if a < b {
		a, b = b, a
	}
	return fmt.Sprintf("%d - %d", a, b), a - b
}
