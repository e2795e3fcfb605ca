package bootstrap

import (
	"github.com/go-linegate/linegate/internal/line"
	"github.com/go-linegate/linegate/internal/services"
)

// initializeBusinessLayer sets up the flow managers and services.
func (app *Application) initializeBusinessLayer() error {
	cfg := app.Config

	app.UserService = services.NewUserService(
		app.DB, app.SessionCache, app.TokenCodec, cfg.SessionTTL)

	loginFlow := line.NewLoginFlow(line.FlowConfig{
		ClientID:     cfg.LineLogin.ClientID,
		ClientSecret: cfg.LineLogin.ClientSecret,
		AuthURL:      cfg.LineLogin.AuthURL,
		TokenURL:     cfg.LineLogin.TokenURL,
		Scopes:       cfg.LineLogin.Scopes,
		RedirectURL:  cfg.LineLogin.RedirectURL,
	}, cfg.LoginVerifyURL)

	app.LoginService = services.NewLoginService(
		loginFlow,
		line.NewLoginAPI(app.RetryClient),
		app.DB,
		app.UserService,
		app.MetricsRecorder,
	)

	notifyFlow := line.NewNotifyFlow(line.FlowConfig{
		ClientID:     cfg.LineNotify.ClientID,
		ClientSecret: cfg.LineNotify.ClientSecret,
		AuthURL:      cfg.LineNotify.AuthURL,
		TokenURL:     cfg.LineNotify.TokenURL,
		Scopes:       cfg.LineNotify.Scopes,
		RedirectURL:  cfg.LineNotify.RedirectURL,
	}, cfg.NotifySendURL, cfg.NotifyStatusURL, cfg.NotifyRevokeURL)

	app.NotifyService = services.NewNotifyService(
		notifyFlow,
		line.NewNotifyAPI(app.RetryClient),
		app.DB,
		app.UserService,
		app.CredentialCache,
		app.MetricsRecorder,
	)

	return nil
}
