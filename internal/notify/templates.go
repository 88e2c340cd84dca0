package notify

import "html/template"

var advertiserTemplate = template.Must(template.New("advertiser").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
{{if .LogoURL}}<img src="{{.LogoURL}}" alt="Vostcard" width="120">{{end}}
<h2 style="color: #002B4D;">New Advertiser Application</h2>
<p>A new business has applied to advertise on Vostcard.</p>
<table cellpadding="6" style="border-collapse: collapse;">
<tr><td><strong>Name</strong></td><td>{{.FirstName}} {{.LastName}}</td></tr>
<tr><td><strong>Business</strong></td><td>{{.BusinessName}}</td></tr>
<tr><td><strong>Email</strong></td><td><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
<tr><td><strong>Application ID</strong></td><td>{{.ApplicationID}}</td></tr>
<tr><td><strong>Submitted</strong></td><td>{{.Timestamp}}</td></tr>
</table>
<p>Please review the application in the admin panel.</p>
</body>
</html>
`))

var bugReportTemplate = template.Must(template.New("bugreport").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
{{if .LogoURL}}<img src="{{.LogoURL}}" alt="Vostcard" width="120">{{end}}
<h2 style="color: #002B4D;">Bug Report</h2>
<p><strong>Subject:</strong> {{.Subject}}</p>
<div style="padding: 12px; background: #f5f5f5; border-radius: 6px;">{{.Body}}</div>
<p style="font-size: 12px; color: #888;">Received {{.Timestamp}}</p>
</body>
</html>
`))
