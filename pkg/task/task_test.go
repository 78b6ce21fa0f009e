package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Valid(t *testing.T) {
	for _, k := range Kinds() {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("Nope").Valid())
	assert.Equal(t, "KasadaCaptchaSolver", KindKasadaCaptcha.String())
}

func TestResolveTarget(t *testing.T) {
	url, err := ResolveTarget(TargetKick, "")
	require.NoError(t, err)
	assert.Equal(t, string(TargetKick), url)

	url, err = ResolveTarget(TargetCustom, "https://example.com/p.js")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/p.js", url)

	_, err = ResolveTarget(TargetCustom, "")
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	_, err = ResolveTarget("", "")
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestLookupTarget(t *testing.T) {
	tg, ok := LookupTarget("twitch")
	assert.True(t, ok)
	assert.Equal(t, TargetTwitch, tg)

	_, ok = LookupTarget("myspace")
	assert.False(t, ok)
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"unknown kind", Request{Kind: "Bogus"}, true},
		{"captcha without target", Request{Kind: KindKasadaCaptcha}, true},
		{"captcha", Request{Kind: KindKasadaCaptcha, Target: string(TargetTwitch)}, false},
		{"check without token", Request{Kind: KindTwitchCheckIntegrity}, true},
		{"public without access token", Request{Kind: KindTwitchPublicIntegrity}, true},
		{"passport", Request{Kind: KindTwitchPassportIntegrity, AccessToken: "at"}, false},
		{"local", Request{Kind: KindTwitchLocalIntegrity}, false},
		{"register without email", Request{Kind: KindTwitchRegisterAccount}, true},
		{"balance", Request{Kind: KindBalance}, false},
		{"scraper", Request{Kind: KindTwitchScraper}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidRequest))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequest_PayloadDropsForeignParameters(t *testing.T) {
	req := Request{
		Kind:        KindKasadaCaptcha,
		Target:      "https://example.com/p.js",
		Token:       "tok",
		AccessToken: "at",
		Proxy:       "u:p@h:1",
		Email:       "a@b.c",
	}
	data, err := json.Marshal(req.Payload())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"KasadaCaptchaSolver","pjs":"https://example.com/p.js"}`, string(data))
}

func TestRequest_PayloadLocalIntegrity(t *testing.T) {
	req := Request{
		Kind:     KindTwitchLocalIntegrity,
		Proxy:    "u:p@h:1",
		ClientID: "cid",
		DeviceID: "dev",
		Email:    "ignored@example.com",
	}
	data, err := json.Marshal(req.Payload())
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"Twitch_LocalIntegrity","proxy":"u:p@h:1","client_id":"cid","device_id":"dev"}`,
		string(data),
	)
}

func TestParseBalance(t *testing.T) {
	tests := []struct {
		in       string
		amount   float64
		currency string
	}{
		{"12.50USD", 12.50, "USD"},
		{"7", 7, ""},
		{" 3.25 EUR ", 3.25, "EUR"},
		{"0.001", 0.001, ""},
	}
	for _, tt := range tests {
		b, err := ParseBalance(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.amount, b.Amount, 1e-9, tt.in)
		assert.Equal(t, tt.currency, b.Currency, tt.in)
	}
}

func TestParseBalance_Invalid(t *testing.T) {
	_, err := ParseBalance("USD")
	assert.Error(t, err)

	_, err = ParseBalance("1.2.3")
	assert.Error(t, err)
}

func TestError_IsAndAs(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("wrapped: %w", TransportFailure("submit task", cause))

	assert.True(t, errors.Is(err, ErrTransportFailure))
	assert.False(t, errors.Is(err, ErrPollError))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeTransportFailure, CodeOf(err))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Equal(t, "transport failure: submit task: dial tcp: refused", TransportFailure("submit task", cause).Error())
}

func TestError_Messages(t *testing.T) {
	assert.Equal(t, "submission rejected: bad key", SubmissionRejected("bad key").Error())
	assert.Equal(t,
		`solution kind mismatch: got "Twitch_Scraper", want "KasadaCaptchaSolver"`,
		KindMismatch("Twitch_Scraper", KindKasadaCaptcha).Error(),
	)
	assert.NotContains(t, InvalidProxy().Error(), "@1")
	assert.Contains(t, RetriesExhausted("t1", 4).Error(), "t1")
}
