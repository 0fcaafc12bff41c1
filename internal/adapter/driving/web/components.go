package web

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	vm "github.com/ericfisherdev/actionwatch/internal/adapter/driving/web/viewmodel"
)

// pageWriter accumulates the first write error so components can emit
// markup without checking every call.
type pageWriter struct {
	w   io.Writer
	err error
}

func (p *pageWriter) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *pageWriter) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *pageWriter) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// Layout wraps body in the HTML document shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.raw(`<title>`)
		p.text(title)
		p.raw(`</title><style>` + pageCSS + `</style></head><body><main>`)
		if p.err != nil {
			return p.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		p.raw(`</main><script>` + streamJS + `</script></body></html>`)
		return p.err
	})
}

// StatusPage renders the current workflow status and the settings form.
func StatusPage(page vm.StatusPageViewModel) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		s := page.Settings

		p.raw(`<h1>`)
		if s.Owner != "" && s.Repo != "" {
			p.text(s.Owner + "/" + s.Repo)
		} else {
			p.raw(`No repository configured`)
		}
		p.raw(`</h1>`)

		p.raw(`<p class="status" id="status" data-tone="`)
		p.text(page.Tone)
		p.raw(`">`)
		p.text(page.Status)
		p.raw(`</p><p class="updated" id="updated">`)
		if page.UpdatedAt != "" {
			p.raw(`Updated `)
			p.text(page.UpdatedAt)
		}
		p.raw(`</p>`)

		if page.Flash != "" {
			p.raw(`<p class="flash">`)
			p.text(page.Flash)
			p.raw(`</p>`)
		}

		if !page.Loaded {
			p.raw(`<p class="flash">Settings are still loading.</p>`)
			return p.err
		}

		p.raw(`<form method="post" action="/settings">`)
		p.raw(`<input type="hidden" name="` + csrfFormField + `" value="`)
		p.text(page.CSRFToken)
		p.raw(`">`)

		p.raw(`<label>Owner <input name="owner" value="`)
		p.text(s.Owner)
		p.raw(`"></label>`)

		p.raw(`<label>Repository <input name="repo" value="`)
		p.text(s.Repo)
		p.raw(`"></label>`)

		p.raw(`<label>Token <input type="password" name="token" autocomplete="off" placeholder="`)
		if s.HasToken {
			p.raw(`unchanged`)
		} else {
			p.raw(`not set`)
		}
		p.raw(`"></label>`)
		if s.HasToken {
			p.raw(`<label class="inline"><input type="checkbox" name="clear_token"> Clear token</label>`)
		}

		p.printf(`<label>Refresh every <input type="number" name="refresh_interval" min="%d" max="%d" value="%d"> seconds</label>`,
			s.MinInterval, s.MaxInterval, s.RefreshInterval)

		p.raw(`<button type="submit">Save</button></form>`)
		return p.err
	})
}

const pageCSS = `body{font-family:system-ui,sans-serif;margin:0;background:#f6f8fa;color:#1f2328}
main{max-width:32rem;margin:3rem auto;padding:0 1rem}
.status{font-size:1.5rem;font-weight:600;padding:.75rem 1rem;border-radius:6px;background:#fff8c5}
.status[data-tone=success]{background:#dafbe1}
.status[data-tone=failure]{background:#ffebe9}
.updated{color:#656d76;font-size:.875rem}
.flash{color:#0969da}
form{display:grid;gap:.75rem;margin-top:2rem}
label{display:grid;gap:.25rem}
label.inline{display:block}
input{padding:.375rem;font:inherit}
button{padding:.5rem;font:inherit;cursor:pointer}`

const streamJS = `(function(){
if(!window.EventSource)return;
var el=document.getElementById("status"),up=document.getElementById("updated");
var es=new EventSource("/api/v1/status/stream");
es.onmessage=function(e){
var s=JSON.parse(e.data);el.textContent=s.status;
el.dataset.tone=s.status.indexOf("success")>=0?"success":(s.status.indexOf("completed")>=0?"failure":"pending");
if(s.updated_at){up.textContent="Updated "+new Date(s.updated_at).toLocaleString();}
};
})();`
