package templates

const signInTemplates = `
{{define "signin"}}<section class="signin">
  <h1>Sign in</h1>
  {{if .Error}}<div class="alert alert-error" role="alert">{{.Error}}</div>{{end}}
  {{if .EmailSent}}<div class="alert alert-success">Check your inbox for a sign-in link.</div>{{end}}
  {{range .Providers}}{{if eq .Type "oauth"}}<a class="btn btn-block" href="{{.SignInURL}}?callbackUrl={{$.CallbackURL}}">Sign in with {{.Name}}</a>
  {{end}}{{end}}
  {{if .Email}}<form action="/api/auth/signin/email" method="post">
    <input type="hidden" name="callbackUrl" value="{{.CallbackURL}}">
    <label for="signin-email">Email</label>
    <input type="email" id="signin-email" name="email" required placeholder="you@example.com">
    <button type="submit" class="btn btn-primary">Email me a link</button>
  </form>{{end}}
</section>{{end}}
`

// SignInProvider is one sign-in option.
type SignInProvider struct {
	ID        string
	Name      string
	Type      string
	SignInURL string
}

// SignInProps is the sign-in page state.
type SignInProps struct {
	Providers   []SignInProvider
	CallbackURL string
	Error       string
	EmailSent   bool
}

// SignInPage renders the provider buttons and, when email sign-in is
// enabled, the magic link form.
func SignInPage(props SignInProps) string {
	data := struct {
		SignInProps
		Email bool
	}{SignInProps: props}
	for _, p := range props.Providers {
		if p.Type == "email" {
			data.Email = true
		}
	}
	return execute(views, "signin", data)
}

// clientScript wires reaction buttons, the live counter feed, theme
// choices and checkout buttons.
const clientScript = `(function () {
  function setCount(key, count) {
    document.querySelectorAll('[data-counter="' + key + '"]').forEach(function (el) { el.textContent = count; });
  }
  document.addEventListener('click', function (ev) {
    var react = ev.target.closest('[data-react]');
    if (react) {
      react.disabled = true;
      fetch(react.dataset.react, { method: 'POST', credentials: 'same-origin' })
        .then(function (res) {
          if (res.status === 401) { location.href = '/api/auth/signin?callbackUrl=' + encodeURIComponent(location.pathname); return null; }
          return res.json();
        })
        .then(function (body) {
          if (!body) { return; }
          var key = react.querySelector('[data-counter]').dataset.counter;
          if (typeof body.count === 'number') { setCount(key, body.count); }
          if (body.error) { console.error(body.error.message); }
        })
        .finally(function () { react.disabled = false; });
      return;
    }
    var choice = ev.target.closest('[data-theme-choice]');
    if (choice) {
      fetch('/api/theme', {
        method: 'POST', credentials: 'same-origin',
        headers: { 'Content-Type': 'application/json' },
        body: JSON.stringify({ theme: choice.dataset.themeChoice })
      }).then(function (res) { return res.ok ? res.json() : null; })
        .then(function (body) {
          if (body && body.theme) { document.documentElement.dataset.theme = body.theme; }
          var menu = choice.closest('details');
          if (menu) { menu.open = false; }
        });
      return;
    }
    var plan = ev.target.closest('[data-checkout]');
    if (plan) {
      plan.disabled = true;
      fetch('/api/checkout', {
        method: 'POST', credentials: 'same-origin',
        headers: { 'Content-Type': 'application/json' },
        body: JSON.stringify({ priceId: plan.dataset.checkout, successUrl: '/dashboard?checkout=success', cancelUrl: '/dashboard?checkout=canceled' })
      }).then(function (res) { return res.json(); })
        .then(function (body) {
          if (body.url) { location.href = body.url; return; }
          plan.disabled = false;
          if (body.error) { alert(body.error.message); }
        });
      return;
    }
    document.querySelectorAll('details.dropdown[open]').forEach(function (d) {
      if (!d.contains(ev.target)) { d.open = false; }
    });
  });
  if (document.querySelector('[data-counter]') && 'WebSocket' in window) {
    var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
    var ws = new WebSocket(proto + location.host + '/ws/reactions');
    ws.onmessage = function (msg) {
      var u = JSON.parse(msg.data);
      setCount(u.kind + ':' + u.id + ':' + u.reaction, u.count);
    };
  }
})();`
