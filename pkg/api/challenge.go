package api

import (
	"html/template"
	"net/http"

	"github.com/platinummonkey/gatekeeper/pkg/sso"
)

// challengeTemplate renders the second-factor interstitial served after a
// verified callback. The page posts the single-use token back to the
// matching redemption route and follows the redirect in the response.
var challengeTemplate = template.Must(template.New("challenge").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
</head>
<body>
  <form id="challenge">
    <p>{{.Prompt}}</p>
    {{if .Field}}<input type="text" id="value" name="{{.Field}}" autocomplete="off" autofocus>{{end}}
    <button type="submit">Authenticate</button>
  </form>
  <script>
    document.getElementById("challenge").addEventListener("submit", function(ev) {
      ev.preventDefault();
      var body = {token: {{.Token}}};
      {{if .Field}}body[{{.Field}}] = document.getElementById("value").value;{{end}}
      fetch({{.Endpoint}}, {
        method: "POST",
        headers: {"Content-Type": "application/json"},
        body: JSON.stringify(body)
      }).then(function(resp) {
        return resp.json().then(function(data) {
          if (resp.ok && data.redirect) {
            window.location = data.redirect;
          } else {
            document.querySelector("p").textContent = data.error_msg || "Authentication failed";
          }
        });
      });
    });
  </script>
</body>
</html>
`))

type challengePage struct {
	Title    string
	Prompt   string
	Field    string
	Endpoint string
	Token    string
}

// renderChallenge serves the interstitial for a pending factor challenge.
func (h *SSOHandlers) renderChallenge(w http.ResponseWriter, ch *sso.Challenge) {
	page := challengePage{Token: ch.Token}
	switch ch.Page {
	case sso.PageYubico:
		page.Title = "YubiKey Authentication"
		page.Prompt = "Insert your YubiKey and touch the button"
		page.Field = "key"
		page.Endpoint = "/sso/yubico"
	default:
		page.Title = "Duo Authentication"
		page.Endpoint = "/sso/duo"
		if ch.DuoFactor == sso.DuoFactorPasscode {
			page.Prompt = "Enter your Duo passcode"
			page.Field = "passcode"
		} else {
			page.Prompt = "Approve the Duo request on your device"
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := challengeTemplate.Execute(w, page); err != nil {
		h.logger.WithError(err).Error("Failed to render challenge page")
	}
}
