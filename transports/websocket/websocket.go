// Package websocket links one UI client to a playback-and-conversation
// session. Text frames carry protocol envelopes; binary frames carry
// microphone audio while a recording session is active.
package websocket

import (
	"context"
	"sync"

	"storykit/capture"
	"storykit/chat"
	"storykit/core"
	chatevents "storykit/events/chat"
	playbackevents "storykit/events/playback"
	sttevents "storykit/events/stt"
	ttsevents "storykit/events/tts"
	"storykit/playback"
	"storykit/protocol"
	"storykit/synth"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// SessionTransport bridges the event bus and component entry points to a
// single websocket client.
type SessionTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex // protects writes

	storyData   protocol.StoryDataPayload
	controller  *playback.Controller
	session     *chat.Session
	recorder    *capture.Recorder
	synthesizer *synth.Synthesizer
	bus         *core.EventBus
	logger      *core.Logger

	micMu         sync.Mutex
	micEncoding   core.AudioEncodingFormat
	micSampleRate int
	micChannels   int
}

func NewSessionTransport(
	conn *websocket.Conn,
	storyData protocol.StoryDataPayload,
	controller *playback.Controller,
	session *chat.Session,
	recorder *capture.Recorder,
	synthesizer *synth.Synthesizer,
	bus *core.EventBus,
	logger *core.Logger,
) *SessionTransport {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &SessionTransport{
		conn:          conn,
		storyData:     storyData,
		controller:    controller,
		session:       session,
		recorder:      recorder,
		synthesizer:   synthesizer,
		bus:           bus,
		logger:        logger.With(map[string]interface{}{"component": "ws_transport"}),
		micEncoding:   core.PCM,
		micSampleRate: 16000,
		micChannels:   1,
	}
}

// Run serves the client until the connection drops or the context ends.
// Leaving mid-capture is equivalent to stop-and-discard.
func (t *SessionTransport) Run(ctx context.Context) error {
	t.bus.Subscribe(t.relayEvent)

	if err := t.sendEnvelope(protocol.MsgStoryData, t.storyData); err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return t.readPump(egCtx)
	})
	eg.Go(func() error {
		<-egCtx.Done()
		t.recorder.Abandon()
		t.conn.Close()
		return nil
	})
	return eg.Wait()
}

func (t *SessionTransport) readPump(ctx context.Context) error {
	for {
		messageType, msg, err := t.conn.ReadMessage()
		if err != nil {
			return err
		}

		switch messageType {
		case websocket.TextMessage:
			t.dispatch(ctx, msg)
		case websocket.BinaryMessage:
			t.micMu.Lock()
			chunk := core.AudioChunk{
				Data:       msg,
				SampleRate: t.micSampleRate,
				Channels:   t.micChannels,
				Format:     t.micEncoding,
			}
			t.micMu.Unlock()
			t.recorder.PushChunk(chunk)
		}
	}
}

func (t *SessionTransport) dispatch(ctx context.Context, msg []byte) {
	msgType, payload, err := protocol.Unmarshal(msg)
	if err != nil {
		t.logger.Warnf("dropping malformed client message: %v", err)
		return
	}

	switch msgType {
	case protocol.MsgStart:
		t.controller.Start()
	case protocol.MsgAdvance:
		t.controller.Advance()
	case protocol.MsgSceneAudioEnded:
		t.controller.NotifyAudioFinished()
	case protocol.MsgSceneAudioError:
		p, _ := protocol.UnmarshalPayload[protocol.AudioErrorPayload](payload)
		t.controller.NotifyAudioError(p.Reason)
	case protocol.MsgResponseAudioEnded:
		t.synthesizer.NotifyPlaybackEnded()
	case protocol.MsgResponseAudioError:
		p, _ := protocol.UnmarshalPayload[protocol.AudioErrorPayload](payload)
		t.synthesizer.NotifyPlaybackError(p.Reason)
	case protocol.MsgUtterance:
		p, err := protocol.UnmarshalPayload[protocol.UtterancePayload](payload)
		if err != nil {
			t.logger.Warnf("malformed utterance payload: %v", err)
			return
		}
		// Generation is a suspension point; keep the read pump responsive.
		go t.session.SendUserUtterance(ctx, p.Text)
	case protocol.MsgRecordToggle:
		t.recorder.Toggle(ctx)
	case protocol.MsgMicConfig:
		p, err := protocol.UnmarshalPayload[protocol.MicConfigPayload](payload)
		if err != nil {
			t.logger.Warnf("malformed mic config payload: %v", err)
			return
		}
		t.setMicConfig(p)
	default:
		t.logger.Warnf("unknown client message type %q", msgType)
	}
}

func (t *SessionTransport) setMicConfig(p protocol.MicConfigPayload) {
	t.micMu.Lock()
	defer t.micMu.Unlock()
	if p.Encoding == "ulaw" {
		t.micEncoding = core.ULAW
	} else {
		t.micEncoding = core.PCM
	}
	if p.SampleRate > 0 {
		t.micSampleRate = p.SampleRate
	}
	if p.Channels > 0 {
		t.micChannels = p.Channels
	}
}

// relayEvent translates bus events into protocol messages for the client.
func (t *SessionTransport) relayEvent(packet *core.EventPacket) {
	switch e := packet.Event.(type) {
	case *playbackevents.PhaseChangedEvent:
		t.send(protocol.MsgPhaseChange, protocol.PhaseChangePayload{
			Phase:       e.Phase,
			SceneNumber: e.SceneNumber,
			Scene:       e.Scene,
		})
	case *chatevents.MessageAppendedEvent:
		t.send(protocol.MsgMessageAppended, protocol.MessageAppendedPayload{Message: e.Message})
	case *chatevents.MessageRemovedEvent:
		t.send(protocol.MsgMessageRemoved, protocol.MessageRemovedPayload{ID: e.MessageId})
	case *chatevents.StatusNoticeEvent:
		t.send(protocol.MsgStatusNotice, protocol.StatusNoticePayload{Text: e.Text, Transient: e.Transient})
	case *sttevents.CaptureStateChangedEvent:
		t.send(protocol.MsgCaptureState, protocol.CaptureStatePayload{State: e.State})
	case *sttevents.CaptureErrorEvent:
		t.send(protocol.MsgCaptureState, protocol.CaptureStatePayload{
			State:     string(capture.StatusError),
			Reason:    e.Reason,
			Transient: e.Transient,
		})
	case *playbackevents.FocusChangedEvent:
		t.send(protocol.MsgFocusChange, protocol.FocusChangePayload{Held: e.Held, Holder: e.Holder})
	case *ttsevents.ResponseAudioEvent:
		t.sendResponseAudio(e.AudioChunk)
	}
}

func (t *SessionTransport) send(msgType protocol.MessageType, payload interface{}) {
	if err := t.sendEnvelope(msgType, payload); err != nil {
		t.logger.Warnf("failed to send %s: %v", msgType, err)
	}
}

func (t *SessionTransport) sendEnvelope(msgType protocol.MessageType, payload interface{}) error {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// sendResponseAudio writes the announcement header and the audio bytes as
// adjacent frames.
func (t *SessionTransport) sendResponseAudio(chunk core.AudioChunk) {
	header, err := protocol.Marshal(protocol.MsgResponseAudio, protocol.ResponseAudioPayload{
		Size:   len(chunk.Data),
		Format: "mp3",
	})
	if err != nil {
		t.logger.Warnf("failed to marshal response audio header: %v", err)
		return
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteMessage(websocket.TextMessage, header); err != nil {
		t.logger.Warnf("failed to send response audio header: %v", err)
		return
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, chunk.Data); err != nil {
		t.logger.Warnf("failed to send response audio: %v", err)
	}
}
