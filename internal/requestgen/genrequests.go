// Package requestgen generates raw requests for tests and benchmarks.
package requestgen

import (
	"strconv"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/minihttp/http/headers"
)

// Headers returns n headers with random names, the last of them is always Host.
func Headers(n int) *headers.Headers {
	hdrs := headers.NewPrealloc(n)

	for i := 0; i < n-1; i++ {
		hdrs.Add("X-"+uniuri.NewLen(16), uniuri.NewLen(32))
	}

	return hdrs.Add("Host", "localhost")
}

func HeadersBlock(hdrs *headers.Headers) (buff []byte) {
	for key, value := range hdrs.Pairs() {
		buff = append(buff, key+": "+value+"\r\n"...)
	}

	return buff
}

// Generate renders a request. Content-Length is added automatically when body isn't nil.
func Generate(method, target string, hdrs *headers.Headers, body []byte) (request []byte) {
	request = append(request, method+" "+target+" HTTP/1.1\r\n"...)
	request = append(request, HeadersBlock(hdrs)...)

	if body != nil {
		request = append(request, "Content-Length: "+strconv.Itoa(len(body))+"\r\n"...)
	}

	request = append(request, '\r', '\n')

	return append(request, body...)
}
