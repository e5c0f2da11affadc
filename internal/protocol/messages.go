package protocol

import "time"

// SpeakRequest asks the speech service to synthesize one IPA chunk.
type SpeakRequest struct {
	SessionID     string  `json:"session_id"`
	IPA           string  `json:"ipa"`
	Language      string  `json:"language,omitempty"`
	Speed         float64 `json:"speed,omitempty"`
	BasePitch     float64 `json:"base_pitch,omitempty"`
	Inflection    float64 `json:"inflection,omitempty"`
	ClauseType    string  `json:"clause_type,omitempty"`
	UserIndexBase int     `json:"user_index_base,omitempty"`
}

// AudioChunk carries rendered PCM back to the host. Samples are signed
// 16-bit little-endian mono.
type AudioChunk struct {
	SessionID  string `json:"session_id"`
	Sequence   int    `json:"sequence"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	PCM        []byte `json:"pcm"`
	Final      bool   `json:"final"`
}

// SpeakStatus reports progress: the user index of the most recently fully
// rendered frame, and completion.
type SpeakStatus struct {
	SessionID string    `json:"session_id"`
	LastIndex int       `json:"last_index"`
	Dropped   int       `json:"dropped_symbols,omitempty"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectSpeechSay      = "speech.say"
	SubjectSpeechAudio    = "speech.audio"
	SubjectSpeechProgress = "speech.progress"
	SubjectSpeechDone     = "speech.done"
)
