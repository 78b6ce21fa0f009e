package task

import (
	"encoding/json"
)

// Solution is the decoded result of a completed task. The concrete
// type is fixed by the kind that produced it.
type Solution interface {
	Kind() Kind
	isSolution()
}

// KasadaSolution carries the verification headers produced by
// solving a challenge.
type KasadaSolution struct {
	UserAgent string `json:"user-agent"`
	CD        string `json:"x-kpsdk-cd"`
	CR        string `json:"x-kpsdk-cr"`
	CT        string `json:"x-kpsdk-ct"`
	R         string `json:"x-kpsdk-r"`
	ST        string `json:"x-kpsdk-st"`
}

// UnmarshalJSON also accepts the short `cd`/`ct` keys some service
// versions emit. The long keys win when both are present.
func (s *KasadaSolution) UnmarshalJSON(data []byte) error {
	type plain KasadaSolution
	var aux struct {
		plain
		ShortCD string `json:"cd"`
		ShortCT string `json:"ct"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = KasadaSolution(aux.plain)
	if s.CD == "" {
		s.CD = aux.ShortCD
	}
	if s.CT == "" {
		s.CT = aux.ShortCT
	}
	return nil
}

// ScraperSolution is a scraped Twitch profile.
type ScraperSolution struct {
	Biography      string `json:"biography"`
	ProfilePicture string `json:"profile_picture"`
	Username       string `json:"username"`
}

// CheckIntegritySolution is the decoded claim set of an integrity
// token.
type CheckIntegritySolution struct {
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
	DeviceID string `json:"device_id"`
	Exp      string `json:"exp"`
	Iat      string `json:"iat"`
	IsBadBot string `json:"is_bad_bot"`
	Iss      string `json:"iss"`
	Nbf      string `json:"nbf"`
	UserID   string `json:"user_id"`
}

// IntegritySolution is shared by the public, local and passport
// integrity kinds.
type IntegritySolution struct {
	kind Kind

	DeviceID       string `json:"device_id"`
	IntegrityToken string `json:"integrity_token"`
	Proxy          string `json:"proxy"`
	UserAgent      string `json:"user-agent"`
}

// RegisterAccountSolution holds a freshly registered account.
type RegisterAccountSolution struct {
	AccessToken string `json:"access_token"`
	Password    string `json:"password"`
	Username    string `json:"username"`
}

func (KasadaSolution) Kind() Kind          { return KindKasadaCaptcha }
func (ScraperSolution) Kind() Kind         { return KindTwitchScraper }
func (CheckIntegritySolution) Kind() Kind  { return KindTwitchCheckIntegrity }
func (s IntegritySolution) Kind() Kind     { return s.kind }
func (RegisterAccountSolution) Kind() Kind { return KindTwitchRegisterAccount }

func (KasadaSolution) isSolution()          {}
func (ScraperSolution) isSolution()         {}
func (CheckIntegritySolution) isSolution()  {}
func (IntegritySolution) isSolution()       {}
func (RegisterAccountSolution) isSolution() {}

// header is the discriminator shared by every payload, including
// the Error variant.
type header struct {
	Type   string `json:"type"`
	Failed string `json:"failed"`
}

// Decode narrows a raw solution payload to the variant of the
// expected kind. An `Error` payload yields ErrRemoteTaskFailed;
// any other type that differs from expected, including a missing
// or unreadable one, yields ErrSolutionKindMismatch.
func Decode(payload json.RawMessage, expected Kind) (Solution, error) {
	var h header
	if len(payload) == 0 {
		return nil, KindMismatch("", expected)
	}
	if err := json.Unmarshal(payload, &h); err != nil {
		m := KindMismatch("", expected)
		m.Err = err
		return nil, m
	}
	if h.Type == errorType {
		return nil, RemoteTaskFailed(h.Failed)
	}
	if h.Type != string(expected) {
		return nil, KindMismatch(h.Type, expected)
	}

	switch expected {
	case KindKasadaCaptcha:
		return decodeAs[KasadaSolution](payload, expected)
	case KindTwitchScraper:
		return decodeAs[ScraperSolution](payload, expected)
	case KindTwitchCheckIntegrity:
		return decodeAs[CheckIntegritySolution](payload, expected)
	case KindTwitchPublicIntegrity, KindTwitchLocalIntegrity, KindTwitchPassportIntegrity:
		s, err := decodeAs[IntegritySolution](payload, expected)
		if err != nil {
			return nil, err
		}
		is := s.(IntegritySolution)
		is.kind = expected
		return is, nil
	case KindTwitchRegisterAccount:
		return decodeAs[RegisterAccountSolution](payload, expected)
	default:
		return nil, InvalidRequest("task kind " + string(expected) + " has no solution payload")
	}
}

func decodeAs[S Solution](payload json.RawMessage, expected Kind) (Solution, error) {
	var s S
	if err := json.Unmarshal(payload, &s); err != nil {
		m := KindMismatch(string(expected), expected)
		m.Message = "malformed solution fields"
		m.Err = err
		return nil, m
	}
	return s, nil
}
