/*
Package authsdk is the Go client for the Congregation auth service.

An SDKClient covers the unauthenticated endpoints and signs members in.
Signing in returns a Session, which carries the token pair and refreshes
the access token shortly before it expires:

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.Login(ctx, "member@example.com", password)
	if err != nil {
		return err
	}

	me, err := session.Me(ctx)

Google sign-in takes the ID token issued to the web or Android app. When an
account with the same email already exists and the service is configured to
ask for confirmation, the call fails with ErrLinkConfirmationRequired; sign
in with the password and call Session.LinkGoogle instead:

	session, err := client.LoginWithGoogle(ctx, idToken)
	if errors.Is(err, authsdk.ErrLinkConfirmationRequired) {
		session, err = client.Login(ctx, email, password)
		...
		_, err = session.LinkGoogle(ctx, idToken, password)
	}

Every non-2xx answer is an *APIError. Match on the status with errors.Is and
the sentinels (ErrUnauthorized, ErrNotFound, ...); validation failures list
the offending fields in APIError.Fields. Request types have a Validate
method mirroring the server's rules so forms can fail early.

Changing the password retires every refresh token issued before it, so
Session.ChangePassword signs in again with the new password and keeps the
session usable.
*/
package authsdk
