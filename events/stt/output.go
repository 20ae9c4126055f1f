package stt

type CaptureStateChangedEvent struct {
	State string // idle, recording, processing, error
}

func (e *CaptureStateChangedEvent) GetId() string {
	return "stt.capture_state_changed"
}

type CaptureErrorEvent struct {
	Reason    string
	Transient bool
}

func (e *CaptureErrorEvent) GetId() string {
	return "stt.capture_error"
}

type TranscriptEvent struct {
	Text string
}

func (e *TranscriptEvent) GetId() string {
	return "stt.transcript"
}
