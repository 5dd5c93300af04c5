//go:build !integration

package model_test

import (
	"errors"
	"reflect"
	"testing"

	"telegram-onboarding-bot/internal/domain"
	"telegram-onboarding-bot/internal/domain/model"
)

func TestNewUserRecord(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		rec, err := model.NewUserRecord("", 42, "alice", "Canada")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.ID == "" {
			t.Error("expected a generated ID")
		}
		if rec.TelegramID != 42 || rec.Country != "Canada" {
			t.Errorf("unexpected record: %+v", rec)
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		if _, err := model.NewUserRecord("", 0, "alice", "Canada"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("zero tg id: expected ErrInvalidArgument, got %v", err)
		}
		if _, err := model.NewUserRecord("", 42, "alice", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("empty country: expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSplitTags(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"feedback", []string{"feedback"}},
		{"feedback,updates", []string{"feedback", "updates"}},
		{" feedback , updates ", []string{"feedback", "updates"}},
		{",,", nil},
	}
	for _, c := range cases {
		if got := model.SplitTags(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("SplitTags(%q): expected %v, got %v", c.in, c.want, got)
		}
	}
}

func TestJoinedRoundTrip(t *testing.T) {
	rec, err := model.NewUserRecord("", 1, "", "Japan")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	rec.Interests = []string{"learn", "promote"}
	if got := model.SplitTags(rec.InterestsJoined()); !reflect.DeepEqual(got, rec.Interests) {
		t.Errorf("round trip: expected %v, got %v", rec.Interests, got)
	}
}

func TestSessionRecordConversion(t *testing.T) {
	sess, err := model.NewOnboardingSession(7, "bob", "Iceland")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if sess.Stage != model.StageAwaitingInterests {
		t.Fatalf("expected first stage, got %s", sess.Stage)
	}

	sess.Interests = []string{"feedback"}
	sess.Platforms = []string{"Flutter"}
	sess.AppLink = "https://apps.example.com/1"
	sess.FullName = "Bob Jones"

	rec, err := sess.Record()
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if rec.TelegramID != 7 || rec.Country != "Iceland" || rec.FullName != "Bob Jones" {
		t.Errorf("unexpected record: %+v", rec)
	}

	// The record owns its slices.
	rec.Interests[0] = "mutated"
	if sess.Interests[0] != "feedback" {
		t.Error("record conversion shares the session's slice")
	}
}

func TestNewOnboardingSessionRejectsBadInput(t *testing.T) {
	if _, err := model.NewOnboardingSession(0, "", "Canada"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := model.NewOnboardingSession(5, "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
