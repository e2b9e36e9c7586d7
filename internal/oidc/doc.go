/*
Package oidc resolves the App ID OAuth server endpoints.

By default the endpoints are derived from the server URL:

	<serverUrl>/authorization
	<serverUrl>/token
	<serverUrl>/publickeys
	<serverUrl>/userinfo

When discovery is enabled they are read from the OpenID Connect discovery
document at <serverUrl>/.well-known/openid-configuration instead.
*/
package oidc
