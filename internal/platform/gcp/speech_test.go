package gcp

import (
	"testing"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

func TestSummarizeTranscript(t *testing.T) {
	resp := &speechpb.LongRunningRecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{
				{Transcript: " I saw the car leave at nine. ", Confidence: 0.9},
				{Transcript: "I saw the cat leave at nine."},
			}, LanguageCode: "en-us"},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "  "}}},
			nil,
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{
				{Transcript: "It was a blue sedan.", Confidence: 0.8},
			}, LanguageCode: "en-us"},
		},
	}
	res := summarizeTranscript(resp, "en-US")
	if res.Text != "I saw the car leave at nine.\nIt was a blue sedan." {
		t.Fatalf("text: got=%q", res.Text)
	}
	if res.Lines != 2 {
		t.Fatalf("lines: want=2 got=%d", res.Lines)
	}
	if res.Language != "en-us" {
		t.Fatalf("language: want=en-us got=%q", res.Language)
	}
}

func TestSummarizeTranscriptFallsBackToConfiguredLanguage(t *testing.T) {
	resp := &speechpb.LongRunningRecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "hola"}}},
		},
	}
	if got := summarizeTranscript(resp, "es-ES").Language; got != "es-ES" {
		t.Fatalf("language: want=es-ES got=%q", got)
	}
	if got := summarizeTranscript(nil, "es-ES"); got != (OCRResult{}) {
		t.Fatalf("nil response: want empty got=%+v", got)
	}
}

func TestRecognitionConfig(t *testing.T) {
	cases := map[string]speechpb.RecognitionConfig_AudioEncoding{
		"case/ev/interview.WAV": speechpb.RecognitionConfig_LINEAR16,
		"case/ev/call.flac":     speechpb.RecognitionConfig_FLAC,
		"case/ev/memo.mp3":      speechpb.RecognitionConfig_MP3,
		"case/ev/voice.opus":    speechpb.RecognitionConfig_OGG_OPUS,
		"case/ev/clip.m4a":      speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
	}
	for p, want := range cases {
		rc := recognitionConfig(p, SpeechConfig{})
		if rc.Encoding != want {
			t.Fatalf("%s: want=%s got=%s", p, want, rc.Encoding)
		}
		if rc.LanguageCode != "en-US" || !rc.EnableAutomaticPunctuation {
			t.Fatalf("%s: defaults not applied: %+v", p, rc)
		}
	}
}
