package envelope

import (
	"errors"
	"testing"
)

func TestBuildAndRead(t *testing.T) {
	payload := []byte(`[0,1,100,90,0]`)
	buf := Build("joypad.command", 1712345678901234567, ContentTypeJSONCommand, payload)

	env, err := Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(env.Topic()) != "joypad.command" {
		t.Errorf("Expected topic joypad.command, got %s", env.Topic())
	}
	if env.TimestampNs() != 1712345678901234567 {
		t.Errorf("Unexpected timestamp %d", env.TimestampNs())
	}
	if env.ContentType() != ContentTypeJSONCommand {
		t.Errorf("Unexpected content type %d", env.ContentType())
	}
	if string(env.PayloadBytes()) != string(payload) {
		t.Errorf("Expected payload %s, got %s", payload, env.PayloadBytes())
	}
}

func TestDefaultsWhenFieldsAbsent(t *testing.T) {
	buf := Build("", 0, ContentTypeUnknown, nil)

	env, err := Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if env.TimestampNs() != 0 || env.ContentType() != ContentTypeUnknown {
		t.Errorf("Expected zero defaults, got ts=%d type=%d", env.TimestampNs(), env.ContentType())
	}
	if len(env.PayloadBytes()) != 0 {
		t.Errorf("Expected empty payload, got %v", env.PayloadBytes())
	}
}

func TestReadTruncated(t *testing.T) {
	if _, err := Read([]byte{1, 2}); !errors.Is(err, ErrTruncated) {
		t.Errorf("Expected ErrTruncated, got %v", err)
	}
}
