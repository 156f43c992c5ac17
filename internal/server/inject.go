package server

import (
	"bytes"
	"net/http"
	"strings"
)

const (
	scriptTag     = `<script async src="` + LiveReloadScriptPath + `"></script>`
	maxInjectSize = 1 << 20
)

// injectLiveReload adds the live-reload client to HTML responses before the
// closing body tag.
func injectLiveReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if !(strings.HasSuffix(p, "/") || strings.HasSuffix(p, ".html")) {
			next.ServeHTTP(w, r)
			return
		}
		inj := &injector{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(inj, r)
		inj.finalize()
	})
}

// injector buffers an HTML response up to maxInjectSize. Larger or non-HTML
// responses pass through unchanged.
type injector struct {
	http.ResponseWriter
	statusCode  int
	buffer      []byte
	started     bool
	passthrough bool
	wroteHeader bool
}

func (i *injector) WriteHeader(code int) {
	i.statusCode = code
	if i.passthrough {
		i.ResponseWriter.WriteHeader(code)
		i.wroteHeader = true
	}
}

func (i *injector) Write(data []byte) (int, error) {
	if !i.started {
		i.started = true
		ct := i.Header().Get("Content-Type")
		if ct != "" && !strings.Contains(ct, "text/html") {
			i.startPassthrough()
		}
	}
	if i.passthrough {
		return i.ResponseWriter.Write(data)
	}
	if len(i.buffer)+len(data) > maxInjectSize {
		i.startPassthrough()
		if _, err := i.ResponseWriter.Write(i.buffer); err != nil {
			return 0, err
		}
		i.buffer = nil
		return i.ResponseWriter.Write(data)
	}
	i.buffer = append(i.buffer, data...)
	return len(data), nil
}

func (i *injector) startPassthrough() {
	i.passthrough = true
	if !i.wroteHeader {
		i.ResponseWriter.WriteHeader(i.statusCode)
		i.wroteHeader = true
	}
}

func (i *injector) finalize() {
	if i.passthrough {
		return
	}
	body := i.buffer
	if idx := bytes.LastIndex(body, []byte("</body>")); idx >= 0 {
		out := make([]byte, 0, len(body)+len(scriptTag))
		out = append(out, body[:idx]...)
		out = append(out, scriptTag...)
		out = append(out, body[idx:]...)
		body = out
	}
	i.Header().Del("Content-Length")
	i.ResponseWriter.WriteHeader(i.statusCode)
	if len(body) > 0 {
		_, _ = i.ResponseWriter.Write(body)
	}
}
