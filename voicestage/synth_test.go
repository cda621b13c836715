package voicestage

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPcmToWav(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	wav, err := pcmToWav(pcm)
	require.NoError(t, err)

	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, "data", string(wav[36:40]))

	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, uint16(channels), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(sampleRateHz), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint16(bitsPerSample), binary.LittleEndian.Uint16(wav[34:36]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
	assert.Equal(t, pcm, wav[44:])
}

func TestPcmToWavEmpty(t *testing.T) {
	wav, err := pcmToWav(nil)
	require.NoError(t, err)
	assert.Len(t, wav, 44)
}

func TestSynthesizeLineWritesClip(t *testing.T) {
	fake := &fakeSynthesizer{}
	dest := filepath.Join(t.TempDir(), "001_Krishna.wav")

	err := synthesizeLine(context.Background(), fake, "Krishna", "charon", "Hello world", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "RIFF fake audio", string(data))
}

func TestSynthesizeLineRejectsEmptyText(t *testing.T) {
	fake := &fakeSynthesizer{}
	dest := filepath.Join(t.TempDir(), "001_Krishna.wav")

	err := synthesizeLine(context.Background(), fake, "Krishna", "charon", "   ", dest)
	assert.ErrorIs(t, err, errNoSpeakableText)
	assert.Empty(t, fake.calls)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSynthesizeLineWrapsProviderError(t *testing.T) {
	fake := &fakeSynthesizer{
		fail: func(_, _ string) error { return errors.New("invalid voice id") },
	}
	dest := filepath.Join(t.TempDir(), "001_Krishna.wav")

	err := synthesizeLine(context.Background(), fake, "Krishna", "nope", "Hello", dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Krishna")
	assert.Contains(t, err.Error(), "invalid voice id")

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "nothing may be written on provider failure")
}

func TestNewGeminiSynthesizerRequiresCredentials(t *testing.T) {
	_, err := newGeminiSynthesizer(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
}
