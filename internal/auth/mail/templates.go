package mail

import "html/template"

var welcomeTmpl = template.Must(template.New("welcome").Parse(`
<h1>Welcome to Congregation, {{.Name}}!</h1>
<p>We are thrilled to have you join our community.</p>
<p>Get started by exploring sermons, quizzes, and connecting with others.</p>
`))

var resetTmpl = template.Must(template.New("reset").Parse(`
<h1>Password Reset Request</h1>
<p>You requested to reset your password. Click the link below to proceed:</p>
<a href="{{.Link}}">Reset Password</a>
<p>This link expires in one hour. If you did not request this, please ignore this email.</p>
`))

var alertTmpl = template.Must(template.New("alert").Parse(`
<h1>Security Alert</h1>
<p>A {{.Event}} was detected on your account.</p>
<p>If this was you, no action is needed.</p>
<p>If this wasn't you, please secure your account immediately.</p>
`))
