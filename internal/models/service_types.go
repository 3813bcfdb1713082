package models

// ServiceKind names one of the audio backends a generation request can
// be routed to. The set is closed; anything else coming in over the
// wire is rejected before it reaches a handler.
type ServiceKind string

const (
	ServiceStyleTTS2   ServiceKind = "styletts2"     // text to speech
	ServiceSeedVC      ServiceKind = "seedvc"        // voice to voice conversion
	ServiceMakeAnAudio ServiceKind = "make-an-audio" // music and sound effects
	ServiceWhisper     ServiceKind = "whisper"       // speech to text
)

// AllServices lists every backend, in the order the UI shows them.
var AllServices = []ServiceKind{
	ServiceStyleTTS2,
	ServiceSeedVC,
	ServiceMakeAnAudio,
	ServiceWhisper,
}

func (s ServiceKind) Valid() bool {
	for _, known := range AllServices {
		if s == known {
			return true
		}
	}
	return false
}

// Voices is the set of target voices the speech backends understand.
var Voices = []string{"angry", "narrator", "women"}

func IsValidVoice(voice string) bool {
	for _, v := range Voices {
		if voice == v {
			return true
		}
	}
	return false
}
