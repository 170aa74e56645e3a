package zeromq

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/open-teleop/joypad/pkg/command"
	"github.com/open-teleop/joypad/pkg/envelope"
	customlog "github.com/open-teleop/joypad/pkg/log"
)

const testTapAddress = "tcp://127.0.0.1:35557"

func TestCommandTapPublishesEnvelope(t *testing.T) {
	if testing.Short() {
		t.Skip("binds a local TCP port")
	}

	logger := customlog.NewLogrusLoggerWithWriter("debug", io.Discard)
	tap, err := NewCommandTap(testTapAddress, "joypad.command", logger)
	if err != nil {
		t.Fatalf("Failed to create tap: %v", err)
	}
	defer tap.Close()

	ctx, err := zmq4.NewContext()
	if err != nil {
		t.Fatalf("Failed to create ZMQ context: %v", err)
	}
	defer ctx.Term()

	sub, err := ctx.NewSocket(zmq4.SUB)
	if err != nil {
		t.Fatalf("Failed to create SUB socket: %v", err)
	}
	defer sub.Close()
	sub.SetLinger(0)
	sub.SetRcvtimeo(100 * time.Millisecond)
	if err := sub.SetSubscribe("joypad.command"); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	if err := sub.Connect(testTapAddress); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	cmd := command.Encode(0, 1, 100, 90, 0)

	// PUB drops frames until the subscription has propagated, so keep
	// publishing until one arrives.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := tap.Publish(cmd); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		frames, err := sub.RecvMessageBytes(0)
		if err != nil {
			continue
		}
		if len(frames) != 2 {
			t.Fatalf("Expected 2 frames, got %d", len(frames))
		}
		if string(frames[0]) != "joypad.command" {
			t.Errorf("Unexpected topic frame %q", frames[0])
		}
		env, err := envelope.Read(frames[1])
		if err != nil {
			t.Fatalf("Failed to read envelope: %v", err)
		}
		if env.ContentType() != envelope.ContentTypeJSONCommand {
			t.Errorf("Unexpected content type %d", env.ContentType())
		}
		got, err := command.Parse(env.PayloadBytes())
		if err != nil {
			t.Fatalf("Payload is not a command: %v", err)
		}
		if got != cmd {
			t.Errorf("Expected %v, got %v", cmd, got)
		}
		return
	}
	t.Fatalf("No envelope received from the tap")
}

func TestCommandTapClosed(t *testing.T) {
	if testing.Short() {
		t.Skip("binds a local TCP port")
	}

	logger := customlog.NewLogrusLoggerWithWriter("debug", io.Discard)
	tap, err := NewCommandTap("tcp://127.0.0.1:35558", "joypad.command", logger)
	if err != nil {
		t.Fatalf("Failed to create tap: %v", err)
	}
	tap.Close()
	tap.Close()

	if err := tap.Publish(command.Neutral); !errors.Is(err, ErrTapClosed) {
		t.Errorf("Expected ErrTapClosed, got %v", err)
	}
}
