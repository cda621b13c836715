package voicestage

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

var errNoSpeakableText = errors.New("no speakable text after removing director notes")

// Synthesizer converts one line of dialogue to a finished WAV clip. It is
// constructed once per batch run and reused for every line, so tests can
// substitute a fake provider.
type Synthesizer interface {
	Synthesize(ctx context.Context, voice, text string) ([]byte, error)
}

// SynthesizerFactory is the one-time provider setup of a batch run.
// Failure here aborts the whole batch before any line is attempted.
type SynthesizerFactory func(ctx context.Context, cfg Config) (Synthesizer, error)

type geminiSynthesizer struct {
	client *genai.Client
	model  string
}

// newGeminiSynthesizer authenticates against the Gemini API when an API key
// is configured, or against Vertex AI using the project and location
// otherwise.
func newGeminiSynthesizer(ctx context.Context, cfg Config) (Synthesizer, error) {
	if err := cfg.validateProvider(); err != nil {
		return nil, err
	}
	clientConfig := &genai.ClientConfig{}
	if cfg.APIKey != "" {
		clientConfig.APIKey = cfg.APIKey
		clientConfig.Backend = genai.BackendGeminiAPI
	} else {
		clientConfig.Project = cfg.ProjectID
		clientConfig.Location = cfg.Location
		clientConfig.Backend = genai.BackendVertexAI
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("provider init failed (check credentials and service account permissions): %w", err)
	}
	appLog.Info().Str("model", cfg.Model).Msg("speech provider initialized")
	return &geminiSynthesizer{client: client, model: cfg.Model}, nil
}

func (g *geminiSynthesizer) Synthesize(ctx context.Context, voice, text string) ([]byte, error) {
	if len(text) > maxTextLen {
		return nil, fmt.Errorf("text too long: %d > %d", len(text), maxTextLen)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	systemInstruction := &genai.Content{
		Parts: []*genai.Part{
			{Text: "You are a TTS engine. Repeat the user's text verbatim. Do not add, remove, translate, or rephrase. Output audio only."},
		},
	}

	cfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		Temperature:        genai.Ptr[float32](0),
		SystemInstruction:  systemInstruction,
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: voice,
				},
			},
		},
	}

	session, err := g.client.Live.Connect(ctx, g.model, cfg)
	if err != nil {
		return nil, fmt.Errorf("live connect failed: %w", err)
	}
	defer session.Close()

	turn := genai.NewContentFromText(text, genai.RoleUser)
	err = session.SendClientContent(genai.LiveClientContentInput{
		Turns:        []*genai.Content{turn},
		TurnComplete: genai.Ptr(true),
	})
	if err != nil {
		return nil, fmt.Errorf("clientContent send failed: %w", err)
	}

	var pcm bytes.Buffer
	for {
		msg, err := session.Receive()
		if err != nil {
			return nil, fmt.Errorf("read failed: %w", err)
		}

		if msg.ServerContent != nil && msg.ServerContent.ModelTurn != nil {
			for _, p := range msg.ServerContent.ModelTurn.Parts {
				if p.InlineData != nil && len(p.InlineData.Data) > 0 {
					pcm.Write(p.InlineData.Data)
				}
			}
		}

		if msg.ServerContent != nil && (msg.ServerContent.TurnComplete || msg.ServerContent.GenerationComplete) {
			break
		}
	}

	return pcmToWav(pcm.Bytes())
}

// synthesizeLine invokes the provider for one cleaned line and writes the
// clip to dest in full before reporting success. Any provider failure
// surfaces as a single opaque error carrying the underlying message.
func synthesizeLine(ctx context.Context, syn Synthesizer, character, voice, text, dest string) error {
	if strings.TrimSpace(text) == "" {
		return errNoSpeakableText
	}
	audio, err := syn.Synthesize(ctx, voice, text)
	if err != nil {
		return fmt.Errorf("provider error for '%s': %w", character, err)
	}
	if err := os.WriteFile(dest, audio, 0644); err != nil {
		return fmt.Errorf("write artifact failed: %w", err)
	}
	return nil
}

func pcmToWav(pcm []byte) ([]byte, error) {
	byteRate := sampleRateHz * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataLen := uint32(len(pcm))
	riffLen := 36 + dataLen

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	if err := binary.Write(buf, binary.LittleEndian, uint32(riffLen)); err != nil {
		return nil, err
	}
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	if err := binary.Write(buf, binary.LittleEndian, uint32(16)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(1)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(channels)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(sampleRateHz)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(byteRate)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(blockAlign)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample)); err != nil {
		return nil, err
	}
	buf.WriteString("data")
	if err := binary.Write(buf, binary.LittleEndian, dataLen); err != nil {
		return nil, err
	}
	buf.Write(pcm)

	return buf.Bytes(), nil
}
