// Package task defines the wire model of the remote task API:
// task kinds, task requests, the polymorphic solution payloads
// and the error taxonomy shared by the client and workflows.
package task

// Kind identifies a remote task type. The string value is the
// exact `type` sent to and echoed back by the service.
type Kind string

// Supported task kinds.
const (
	KindBalance                 Kind = "getBalance"
	KindKasadaCaptcha           Kind = "KasadaCaptchaSolver"
	KindTwitchScraper           Kind = "Twitch_Scraper"
	KindTwitchCheckIntegrity    Kind = "Twitch_CheckIntegrity"
	KindTwitchPublicIntegrity   Kind = "Twitch_PublicIntegrity"
	KindTwitchLocalIntegrity    Kind = "Twitch_LocalIntegrity"
	KindTwitchPassportIntegrity Kind = "Twitch_PassportIntegrity"
	KindTwitchRegisterAccount   Kind = "Twitch_RegisterAccount"
)

// errorType is the `type` of the distinguished failure payload.
const errorType = "Error"

// Kinds returns every supported kind.
func Kinds() []Kind {
	return []Kind{
		KindBalance,
		KindKasadaCaptcha,
		KindTwitchScraper,
		KindTwitchCheckIntegrity,
		KindTwitchPublicIntegrity,
		KindTwitchLocalIntegrity,
		KindTwitchPassportIntegrity,
		KindTwitchRegisterAccount,
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// String returns the wire form of the kind.
func (k Kind) String() string { return string(k) }

// Target is a challenge script URL handed to the captcha solver.
type Target string

// Known challenge targets. TargetCustom means the caller supplies
// its own script URL.
const (
	TargetTwitch      Target = "https://k.twitchcdn.net/149e9513-01fa-4fb0-aad4-566afd725d1b/2d206a39-8ed7-437e-a3be-862e0f06eea3/p.js"
	TargetNike        Target = "https://www.nike.com/149e9513-01fa-4fb0-aad4-566afd725d1b/2d206a39-8ed7-437e-a3be-862e0f06eea3/p.js"
	TargetKick        Target = "https://kick.com/149e9513-01fa-4fb0-aad4-566afd725d1b/2d206a39-8ed7-437e-a3be-862e0f06eea3/p.js"
	TargetCanadaGoose Target = "https://www.canadagoose.com/149e9513-01fa-4fb0-aad4-566afd725d1b/2d206a39-8ed7-437e-a3be-862e0f06eea3/p.js"
	TargetCustom      Target = "custom"
)

var namedTargets = map[string]Target{
	"twitch":      TargetTwitch,
	"nike":        TargetNike,
	"kick":        TargetKick,
	"canadagoose": TargetCanadaGoose,
}

// LookupTarget resolves a short target name such as "twitch".
func LookupTarget(name string) (Target, bool) {
	t, ok := namedTargets[name]
	return t, ok
}

// ResolveTarget returns the script URL to submit. A TargetCustom
// target requires a non-empty custom URL.
func ResolveTarget(t Target, custom string) (string, error) {
	switch t {
	case "":
		return "", InvalidRequest("challenge target is required")
	case TargetCustom:
		if custom == "" {
			return "", InvalidRequest("custom challenge target requires a URL")
		}
		return custom, nil
	default:
		return string(t), nil
	}
}
