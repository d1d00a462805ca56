package setup

import (
	"context"
	"errors"
	"fmt"

	"github.com/systmms/relsetup/internal/prompt"
	"github.com/systmms/relsetup/internal/providers/github"
	"github.com/systmms/relsetup/internal/providers/npm"
)

// MaxChallengeAttempts bounds how many two-factor codes are asked for in a
// single authentication.
const MaxChallengeAttempts = 3

// ErrChallengeExhausted is returned once MaxChallengeAttempts codes were
// rejected.
var ErrChallengeExhausted = errors.New("two-factor challenge attempts exhausted")

type challenge struct {
	provider string
	name     string // prompt question name
	message  string
	detect   func(error) (channel string, ok bool)
	onCode   func(code string)
}

// hostChallenge records each answered code through onCode, so only the
// step owning the counter moves it.
func hostChallenge(onCode func(code string)) challenge {
	return challenge{
		provider: "github",
		name:     "github-otp",
		message:  "What is your GitHub two-factor authentication code?",
		detect:   github.IsOTPChallenge,
		onCode:   onCode,
	}
}

func registryChallenge() challenge {
	return challenge{
		provider: "npm",
		name:     "npm-otp",
		message:  "What is your npm one-time password?",
		detect: func(err error) (string, bool) {
			return "", npm.IsOTPChallenge(err)
		},
	}
}

// answerChallenges calls attempt with no code, and again with a fresh code
// after each recognized challenge. Any other error is returned unchanged.
func (sc *Context) answerChallenges(ctx context.Context, ch challenge, attempt func(code string) error) error {
	code := ""
	for asked := 0; ; asked++ {
		err := attempt(code)
		if err == nil {
			return nil
		}
		channel, ok := ch.detect(err)
		if !ok {
			return err
		}
		if asked == MaxChallengeAttempts {
			return fmt.Errorf("%s: %w", ch.provider, ErrChallengeExhausted)
		}

		sc.Metrics.Challenge(ch.provider)
		if asked == 0 {
			if channel == "" {
				channel = "your authenticator"
			}
			sc.Log.Info("Two-factor authentication code needed via %s.", channel)
		} else {
			sc.Log.Warn("Invalid two-factor authentication code.")
		}

		answers, err := sc.Prompt.Ask(ctx, []prompt.Question{{
			Name:     ch.name,
			Kind:     prompt.Input,
			Message:  ch.message,
			Validate: prompt.Numeric,
		}})
		if err != nil {
			return err
		}
		code = answers.String(ch.name)
		if ch.onCode != nil {
			ch.onCode(code)
		}
	}
}
