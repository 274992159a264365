package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ManualStepMessage is shown when the operator has to finish the login.
const ManualStepMessage = "*** MANUAL STEP REQUIRED: Please complete Google Login and click Resume. ***"

// Resumer suspends the login until the operator signals completion. There is
// no timeout; only cancelling ctx ends the wait early.
type Resumer interface {
	Resume(ctx context.Context, d Driver) error
}

// InspectorResumer pauses in the Playwright inspector. Requires a headed
// browser and a driver implementing Pauser.
type InspectorResumer struct{}

func (InspectorResumer) Resume(ctx context.Context, d Driver) error {
	p, ok := d.(Pauser)
	if !ok {
		return errors.New("driver cannot pause; use auth.resume=prompt")
	}
	return p.Pause(ctx)
}

// PromptResumer waits for a line on In, e.g. Enter pressed in the terminal.
type PromptResumer struct {
	In  io.Reader
	Out io.Writer
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Resume returns once a line is read or ctx is done. On cancellation a
// reader with read deadlines (os.Stdin on a terminal or pipe) is interrupted
// and reset; any other reader leaves its goroutine blocked until the next
// line arrives.
func (r *PromptResumer) Resume(ctx context.Context, _ Driver) error {
	fmt.Fprintln(r.Out, "Press Enter once the dashboard is open in the browser...")

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(r.In).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		return errors.Wrap(err, "failed to read resume signal")
	case <-ctx.Done():
		if dl, ok := r.In.(readDeadliner); ok && dl.SetReadDeadline(time.Now()) == nil {
			<-done
			if err := dl.SetReadDeadline(time.Time{}); err != nil {
				klog.Warningf("[auth] failed to reset read deadline: %v", err)
			}
		}
		return ctx.Err()
	}
}

// SocialLogin starts the Saleor Cloud login, clicks the social provider
// button and hands over to the operator for the identity-provider steps.
type SocialLogin struct {
	LoginURL      string
	Button        string
	ButtonTimeout time.Duration
	Resumer       Resumer
	Marker        Marker
}

func (s *SocialLogin) Name() string { return "interactive" }

func (s *SocialLogin) Login(ctx context.Context, d Driver) error {
	if err := d.Visit(ctx, s.LoginURL); err != nil {
		return err
	}
	if err := d.WaitVisible(ctx, s.Button, s.ButtonTimeout); err != nil {
		return errors.Wrap(err, "social login button not shown")
	}
	if err := d.Click(ctx, s.Button); err != nil {
		return err
	}

	klog.Info(ManualStepMessage)
	if err := s.Resumer.Resume(ctx, d); err != nil {
		return errors.Wrap(err, "manual step aborted")
	}

	return WaitForDashboard(ctx, d, s.Marker)
}
