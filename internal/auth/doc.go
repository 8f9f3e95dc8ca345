// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

/*
Package auth issues and verifies the bearer tokens devices present to the
constellation peer.

Tokens are HS256 JWTs signed with a secret shared between the device and
the peer (at least MinSecretLength bytes). The subject is the device id;
the peer rejects a token whose subject does not match the X-Device-ID
header.

	tm, err := auth.NewTokenManager(secret, time.Hour)
	token, expires, err := tm.Issue("living-room")

	claims, err := tm.Verify(token)
	if errors.Is(err, auth.ErrInvalidToken) {
	    // 401
	}
	_ = claims.DeviceID()

Devices cache a token until shortly before it expires (see
sync.HTTPTransport).
*/
package auth
