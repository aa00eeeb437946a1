package sms

import (
	"context"
	"errors"
	"testing"
	"time"

	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/handyman/internal/config"
)

type fakeCreator struct {
	params *twilioapi.CreateMessageParams
	delay  time.Duration
	err    error
}

func (f *fakeCreator) CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error) {
	f.params = params
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioapi.ApiV2010Message{Sid: &sid}, nil
}

func TestNewSenderWithoutCredentialsIsDisabled(t *testing.T) {
	sender := NewSender(config.Config{}, zaptest.NewLogger(t))
	if _, ok := sender.(Disabled); !ok {
		t.Fatalf("expected Disabled sender, got %T", sender)
	}
	if err := sender.Send(context.Background(), "+48123456789", "hi"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestNewSenderWithCredentialsUsesTwilio(t *testing.T) {
	cfg := config.Config{SMS: config.SMS{
		Timeout: time.Second,
		Twilio:  config.Twilio{AccountSID: "AC1", AuthToken: "token", From: "+15550000000"},
	}}
	if _, ok := NewSender(cfg, zaptest.NewLogger(t)).(*twilioSender); !ok {
		t.Fatalf("expected twilio sender")
	}
}

func TestTwilioSenderBuildsMessage(t *testing.T) {
	creator := &fakeCreator{}
	sender := &twilioSender{api: creator, from: "+15550000000", timeout: time.Second, logger: zaptest.NewLogger(t)}

	if err := sender.Send(context.Background(), "+48123456789", "code 123456"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if creator.params == nil || *creator.params.To != "+48123456789" || *creator.params.From != "+15550000000" || *creator.params.Body != "code 123456" {
		t.Fatalf("unexpected params %+v", creator.params)
	}
}

func TestTwilioSenderTimesOut(t *testing.T) {
	creator := &fakeCreator{delay: 200 * time.Millisecond}
	sender := &twilioSender{api: creator, from: "+15550000000", timeout: 20 * time.Millisecond, logger: zaptest.NewLogger(t)}

	err := sender.Send(context.Background(), "+48123456789", "code")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestTwilioSenderPropagatesErrors(t *testing.T) {
	creator := &fakeCreator{err: errors.New("invalid number")}
	sender := &twilioSender{api: creator, from: "+15550000000", timeout: time.Second, logger: zaptest.NewLogger(t)}

	if err := sender.Send(context.Background(), "+48123456789", "code"); err == nil {
		t.Fatalf("expected error")
	}
}
