package client

import (
	"context"

	"digital.vasic.salamoonder/pkg/task"
)

// SolveKasada solves the challenge served by target. custom is
// the script URL when target is task.TargetCustom.
func (c *Client) SolveKasada(ctx context.Context, target task.Target, custom string) (task.KasadaSolution, error) {
	pjs, err := task.ResolveTarget(target, custom)
	if err != nil {
		return task.KasadaSolution{}, err
	}
	return Solve[task.KasadaSolution](ctx, c, task.Request{
		Kind:   task.KindKasadaCaptcha,
		Target: pjs,
	}, c.maxRetries)
}

// ScrapeTwitchProfile returns a scraped Twitch profile.
func (c *Client) ScrapeTwitchProfile(ctx context.Context) (task.ScraperSolution, error) {
	return Solve[task.ScraperSolution](ctx, c, task.Request{Kind: task.KindTwitchScraper}, c.maxRetries)
}

// CheckTwitchIntegrity decodes the claims of an integrity token.
func (c *Client) CheckTwitchIntegrity(ctx context.Context, token string) (task.CheckIntegritySolution, error) {
	return Solve[task.CheckIntegritySolution](ctx, c, task.Request{
		Kind:  task.KindTwitchCheckIntegrity,
		Token: token,
	}, c.maxRetries)
}

// RegisterTwitchAccount creates a Twitch account bound to email.
func (c *Client) RegisterTwitchAccount(ctx context.Context, email string) (task.RegisterAccountSolution, error) {
	return Solve[task.RegisterAccountSolution](ctx, c, task.Request{
		Kind:  task.KindTwitchRegisterAccount,
		Email: email,
	}, c.maxRetries)
}
