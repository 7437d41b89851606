package http

import "fmt"

// Minimal server-rendered pages backing the links sent by email, so a click
// works without the mobile app installed.

const verifySuccessHTML = `<h2>Email verified</h2>
<p>You can now sign in to the application.</p>`

const verifyFailureHTML = `<h2>Verification failed</h2>
<p>The link is invalid or has expired.</p>`

const resetSuccessHTML = `<h2>Password updated</h2>
<p>You can now sign in with your new password.</p>`

const resetFailureHTML = `<h2>Error</h2>
<p>The link is invalid or has expired.</p>`

const emailChangeSuccessHTML = `<h2>Email updated</h2>
<p>Please sign in again with your new email.</p>`

const emailChangeFailureHTML = `<h2>Error</h2>
<p>The link is invalid or has expired.</p>`

func resetFormHTML(token string) string {
	return fmt.Sprintf(`<h2>Reset password</h2>
<form method="POST" action="/v1/auth/reset-password/confirm/%s">
  <label>New password:</label><br/>
  <input type="password" name="newPassword" minlength="8" required /><br/><br/>
  <button type="submit">Change password</button>
</form>`, token)
}
