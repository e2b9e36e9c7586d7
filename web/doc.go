/*
Package web implements the App ID login for browser applications with the
OAuth 2.0 authorization code flow.

The Strategy redirects the browser to the tenant's authorization endpoint,
exchanges the returned code at the token endpoint, validates the access and
identity tokens against the tenant, the client id and the issuer, and keeps
the resulting core.AuthorizationContext in the host's session.

	strategy, err := web.New(
	    web.WithConfig(cfg),
	    web.WithSessionStore(sessions),
	)
	if err != nil {
	    log.Fatal(err)
	}

	mux.Handle("/login", strategy.Handler(web.SuccessRedirect("/home")))
	mux.Handle("/login/anonymous", strategy.Handler(web.AllowAnonymousLogin()))
	mux.Handle(config.CallbackPath, strategy.Handler(web.FailureRedirect("/error")))
	mux.Handle("/logout", strategy.Logout("/"))
	mux.Handle("/home", strategy.RequireLogin("/login")(homeHandler))

Failed logins never tell the browser why they failed; the reason is logged.

Sessions are owned by the host application. Implement SessionStore over
whatever the application already keeps per browser; MapSession is a ready
made Session for stores that load and save a flat map of strings.
*/
package web
