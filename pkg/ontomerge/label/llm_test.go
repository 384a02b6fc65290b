package label

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
)

type fakeChatter struct {
	reply  string
	err    error
	system string
	user   string
}

func (f *fakeChatter) Chat(ctx context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.reply, f.err
}

func TestLLMLabelerParsesReply(t *testing.T) {
	chat := &fakeChatter{reply: "\n{\"decision\": \"existing\", \"topic\": \"Mega Knight Balance Issues\", \"confidence\": 0.92}\n"}
	l := NewLLMLabeler(chat)

	res, err := l.Label(context.Background(), "MK ruins ladder", []string{"Mega Knight Balance Issues"})
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	want := Result{Decision: DecisionExisting, Topic: "Mega Knight Balance Issues", Confidence: 0.92}
	if res != want {
		t.Fatalf("Label = %+v, want %+v", res, want)
	}
	if chat.system != SystemPrompt {
		t.Error("system prompt not sent")
	}
	if !strings.Contains(chat.user, `"MK ruins ladder"`) || !strings.Contains(chat.user, `["Mega Knight Balance Issues"]`) {
		t.Errorf("user prompt missing review or topics:\n%s", chat.user)
	}
}

func TestLLMLabelerEmptyKnownTopics(t *testing.T) {
	chat := &fakeChatter{reply: `{"decision":"new","topic":"Clan Wars","confidence":0.7}`}
	if _, err := NewLLMLabeler(chat).Label(context.Background(), "clan wars broken", nil); err != nil {
		t.Fatalf("Label: %v", err)
	}
	if !strings.Contains(chat.user, "Existing Topics:\n[]") {
		t.Errorf("expected empty topic list in prompt:\n%s", chat.user)
	}
}

func TestLLMLabelerMalformedReplies(t *testing.T) {
	replies := []string{
		"Sure! The topic is Mega Knight.",
		"```json\n{\"decision\":\"new\",\"topic\":\"X\",\"confidence\":0.5}\n```",
		`{"decision":"new","topic":"","confidence":0.5}`,
		`{"decision":"maybe","topic":"X","confidence":0.5}`,
		`{"decision":"new","topic":"X","confidence":1.5}`,
		`{"decision":"new","topic":"X","confidence":0.5} {"decision":"new"}`,
		`{"decision":"new","topic":"X","confidence":0.5}}`,
		"",
	}
	for _, reply := range replies {
		l := NewLLMLabeler(&fakeChatter{reply: reply})
		if _, err := l.Label(context.Background(), "text", nil); !errors.Is(err, internalerr.ErrMalformedLabel) {
			t.Errorf("reply %q: expected ErrMalformedLabel, got %v", reply, err)
		}
	}
}

func TestLLMLabelerTransportError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewLLMLabeler(&fakeChatter{err: boom}).Label(context.Background(), "text", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if errors.Is(err, internalerr.ErrMalformedLabel) {
		t.Error("transport failure should not look like a malformed label")
	}
}

func TestLLMLabelerWithoutClient(t *testing.T) {
	if _, err := NewLLMLabeler(nil).Label(context.Background(), "text", nil); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
