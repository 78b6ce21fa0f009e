package task

// Request describes one unit of remote work. Only the parameters
// belonging to Kind are sent; the others are ignored.
type Request struct {
	Kind Kind

	// Target is the challenge script URL (KasadaCaptchaSolver).
	Target string

	// Token is the integrity token to inspect (Twitch_CheckIntegrity).
	Token string

	// AccessToken is the account OAuth token (public and passport
	// integrity).
	AccessToken string

	// Proxy, ClientID and DeviceID parameterize the integrity kinds.
	Proxy    string
	ClientID string
	DeviceID string

	// Email is the address to register (Twitch_RegisterAccount).
	Email string
}

// Payload is the `task` object of a createTask call.
type Payload struct {
	Type        Kind   `json:"type"`
	PJS         string `json:"pjs,omitempty"`
	Token       string `json:"token,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	Proxy       string `json:"proxy,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	DeviceID    string `json:"device_id,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Validate checks that the kind is known and that its required
// parameters are present.
func (r Request) Validate() error {
	if !r.Kind.Valid() {
		return InvalidRequest("unknown task kind " + string(r.Kind))
	}
	switch r.Kind {
	case KindKasadaCaptcha:
		if r.Target == "" {
			return InvalidRequest("captcha task requires a target")
		}
	case KindTwitchCheckIntegrity:
		if r.Token == "" {
			return InvalidRequest("check integrity task requires a token")
		}
	case KindTwitchPublicIntegrity, KindTwitchPassportIntegrity:
		if r.AccessToken == "" {
			return InvalidRequest(string(r.Kind) + " task requires an access token")
		}
	case KindTwitchRegisterAccount:
		if r.Email == "" {
			return InvalidRequest("register account task requires an email")
		}
	}
	return nil
}

// Payload builds the wire task object, copying only the
// parameters that belong to the request kind.
func (r Request) Payload() Payload {
	p := Payload{Type: r.Kind}
	switch r.Kind {
	case KindKasadaCaptcha:
		p.PJS = r.Target
	case KindTwitchCheckIntegrity:
		p.Token = r.Token
	case KindTwitchPublicIntegrity, KindTwitchPassportIntegrity:
		p.AccessToken = r.AccessToken
		p.Proxy = r.Proxy
		p.ClientID = r.ClientID
		p.DeviceID = r.DeviceID
	case KindTwitchLocalIntegrity:
		p.Proxy = r.Proxy
		p.ClientID = r.ClientID
		p.DeviceID = r.DeviceID
	case KindTwitchRegisterAccount:
		p.Email = r.Email
	}
	return p
}
