package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/artbeyondsight/sight/pkg/logging"
	"github.com/artbeyondsight/sight/pkg/model"
	"github.com/artbeyondsight/sight/pkg/utils"
	"github.com/gorilla/websocket"
)

const (
	providerName   = "overshoot"
	defaultURL     = "wss://cluster1.overshoot.ai/api/v0.2/stream"
	DefaultModel   = "Qwen/Qwen3-VL-30B-A3B-Instruct"
	envAPIKey      = "OVERSHOOT_API_KEY"
	envURL         = "OVERSHOOT_URL"
	configMsgType  = "config"
	resultMsgType  = "result"
	errorMsgType   = "error"
	defaultTimeout = 10 * time.Second
)

// Processing controls how the service samples the uploaded frames.
type Processing struct {
	ClipLengthSeconds float64 `json:"clip_length_seconds"`
	DelaySeconds      float64 `json:"delay_seconds"`
	FPS               int     `json:"fps"`
	SamplingRatio     float64 `json:"sampling_ratio"`
}

func DefaultProcessing() Processing {
	return Processing{ClipLengthSeconds: 1, DelaySeconds: 1, FPS: 30, SamplingRatio: 0.1}
}

// FrameInterval is the spacing of uploaded frames: fps scaled by the
// sampling ratio.
func (p Processing) FrameInterval() time.Duration {
	perSecond := float64(p.FPS) * p.SamplingRatio
	if perSecond <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / perSecond)
}

type StreamConfig struct {
	URL          string
	APIKey       string
	Model        string
	Prompt       string
	Processing   Processing
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c StreamConfig) withDefaults() StreamConfig {
	if strings.TrimSpace(c.URL) == "" {
		c.URL = strings.TrimSpace(os.Getenv(envURL))
	}
	if c.URL == "" {
		c.URL = defaultURL
	}
	if strings.TrimSpace(c.APIKey) == "" {
		c.APIKey = strings.TrimSpace(os.Getenv(envAPIKey))
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	if strings.TrimSpace(c.Prompt) == "" {
		c.Prompt = DetectionPrompt
	}
	if c.Processing == (Processing{}) {
		c.Processing = DefaultProcessing()
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultTimeout
	}
	return c
}

type configMessage struct {
	Type         string         `json:"type"`
	Model        string         `json:"model"`
	Prompt       string         `json:"prompt"`
	Processing   Processing     `json:"processing"`
	OutputSchema map[string]any `json:"output_schema"`
}

type serverMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	StreamResult
}

// Stream is the realtime inference session. It uploads frames from a
// FrameSource and publishes every result message.
type Stream struct {
	cfg    StreamConfig
	frames FrameSource
	dialer websocket.Dialer
}

func NewStream(cfg StreamConfig, frames FrameSource) *Stream {
	return &Stream{
		cfg:    cfg.withDefaults(),
		frames: frames,
		dialer: websocket.Dialer{HandshakeTimeout: defaultTimeout},
	}
}

// Run connects, sends the session config and forwards results until ctx is
// done or the connection fails. It does not close results.
func (s *Stream) Run(ctx context.Context, results chan<- StreamResult) error {
	log := logging.NewLogger(ctx)
	if s.cfg.APIKey == "" {
		return model.MissingCredential(providerName, envAPIKey)
	}
	schema, err := OutputSchema()
	if err != nil {
		return utils.WrapIfNotNil(err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	conn, response, err := s.dialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		if response != nil {
			return utils.WrapIfNotNil(model.NewProviderError(providerName, response.StatusCode, err.Error()))
		}
		return utils.WrapIfNotNil(err)
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(messageType int, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		return conn.WriteMessage(messageType, data)
	}

	config, err := json.Marshal(configMessage{
		Type:         configMsgType,
		Model:        s.cfg.Model,
		Prompt:       s.cfg.Prompt,
		Processing:   s.cfg.Processing,
		OutputSchema: schema,
	})
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	if err := write(websocket.TextMessage, config); err != nil {
		return utils.WrapIfNotNil(err)
	}
	log.Infof("stream_started model=%q url=%q", s.cfg.Model, s.cfg.URL)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"), time.Now().Add(2*time.Second))
			writeMu.Unlock()
			_ = conn.Close()
		case <-stop:
		}
	}()
	if s.frames != nil {
		go s.uploadFrames(ctx, stop, write)
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return utils.WrapIfNotNil(err)
		}

		message := serverMessage{}
		if err := json.Unmarshal(data, &message); err != nil {
			log.Warnf("stream message is not JSON: %v", err)
			continue
		}
		switch message.Type {
		case errorMsgType:
			return utils.WrapIfNotNil(model.NewProviderError(providerName, http.StatusBadGateway, message.Message))
		case resultMsgType, "":
			select {
			case results <- message.StreamResult:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (s *Stream) uploadFrames(ctx context.Context, stop <-chan struct{}, write func(int, []byte) error) {
	log := logging.NewLogger(ctx)
	ticker := time.NewTicker(s.cfg.Processing.FrameInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			frame, err := s.frames.Frame(ctx)
			if err != nil {
				log.Debugf("frame unavailable: %v", err)
				continue
			}
			data, _, err := frame.Bytes()
			if err != nil {
				log.Warnf("frame encode failed: %v", err)
				continue
			}
			if err := write(websocket.BinaryMessage, data); err != nil {
				log.Warnf("frame upload failed: %v", err)
				return
			}
		}
	}
}
