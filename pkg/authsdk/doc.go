// Package authsdk is a Go client for the kalsumed authentication service.
//
// The SDKClient covers the unauthenticated surface (login, refresh, health);
// a successful login returns a Session that carries the token pair and can
// call authenticated endpoints, rotating its refresh token as it goes.
package authsdk
