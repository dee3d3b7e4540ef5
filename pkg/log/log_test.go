package log

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
)

func sampleEvent() Event {
	return Event{
		Timestamp:    time.Unix(1700000000, 0),
		ConnectionID: "11111111-2222-3333-4444-555555555555",
		Direction:    DirectionOut,
		Layer:        LayerSocket,
		Category:     CategoryState,
		RemoteAddr:   "127.0.0.1:8470",
		StateChange: &StateChangeEvent{
			Entity:   "socket",
			OldState: "CREATED",
			NewState: "CONNECTED",
		},
	}
}

func TestWriterLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)

	want := sampleEvent()
	l.Log(want)
	l.Log(Event{
		Timestamp:    time.Unix(1700000001, 0),
		ConnectionID: want.ConnectionID,
		Layer:        LayerKeepAlive,
		Category:     CategoryControl,
		Control:      &ControlEvent{Type: "PROBE", Sequence: 3},
	})

	dec := cbor.NewDecoder(&buf)

	var first Event
	if err := dec.Decode(&first); err != nil {
		t.Fatalf("decode first event: %v", err)
	}
	if first.ConnectionID != want.ConnectionID {
		t.Errorf("ConnectionID = %q, want %q", first.ConnectionID, want.ConnectionID)
	}
	if first.StateChange == nil || first.StateChange.NewState != "CONNECTED" {
		t.Errorf("StateChange = %+v, want CONNECTED", first.StateChange)
	}
	if first.Control != nil {
		t.Error("state event should not carry a control payload")
	}

	var second Event
	if err := dec.Decode(&second); err != nil {
		t.Fatalf("decode second event: %v", err)
	}
	if second.Control == nil || second.Control.Sequence != 3 {
		t.Errorf("Control = %+v, want sequence 3", second.Control)
	}

	if err := dec.Decode(&Event{}); err != io.EOF {
		t.Errorf("expected EOF after two events, got %v", err)
	}
}

func TestWriterLoggerConcurrent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Log(sampleEvent())
			}
		}()
	}
	wg.Wait()

	// Every event decodes cleanly: no interleaved writes.
	dec := cbor.NewDecoder(&buf)
	count := 0
	for {
		var e Event
		if err := dec.Decode(&e); err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("decode event %d: %v", count, err)
		}
		count++
	}
	if count != 8*50 {
		t.Errorf("decoded %d events, want %d", count, 8*50)
	}
}

func TestWriterLoggerClose(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)

	l.Log(sampleEvent())
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}

	// Logging after close is ignored, not a panic.
	before := buf.Len()
	l.Log(sampleEvent())
	if buf.Len() != before {
		t.Error("Log after Close should write nothing")
	}
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.cbor")

	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	l.Log(sampleEvent())
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopening appends rather than truncating.
	l2, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	l2.Log(sampleEvent())
	l2.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	dec := cbor.NewDecoder(bytes.NewReader(data))
	count := 0
	for {
		var e Event
		if err := dec.Decode(&e); err != nil {
			break
		}
		count++
	}
	if count != 2 {
		t.Errorf("decoded %d events, want 2 after append", count)
	}
}

func TestNoopLogger(t *testing.T) {
	// Must accept events without side effects.
	var l Logger = NoopLogger{}
	l.Log(sampleEvent())
}

func TestEnumStrings(t *testing.T) {
	if DirectionIn.String() != "IN" || DirectionOut.String() != "OUT" {
		t.Error("direction names wrong")
	}
	if LayerSocket.String() != "SOCKET" || LayerKeepAlive.String() != "KEEPALIVE" {
		t.Error("layer names wrong")
	}
	if CategoryControl.String() != "CONTROL" || CategoryError.String() != "ERROR" {
		t.Error("category names wrong")
	}
}
