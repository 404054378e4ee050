package status

import "strconv"

type (
	Code   uint16
	Status string
)

// Only the codes the server is able to put on the wire are listed. Everything else is
// rendered as 500 Internal Server Error by the serializer.
const (
	OK      Code = 200 // RFC 9110, 15.3.1
	Created Code = 201 // RFC 9110, 15.3.2

	BadRequest Code = 400 // RFC 9110, 15.5.1
	NotFound   Code = 404 // RFC 9110, 15.5.5

	InternalServerError Code = 500 // RFC 9110, 15.6.1
)

// Text returns a text for the HTTP status code. It returns the empty
// string if the code is unknown.
func Text(code Code) Status {
	switch code {
	case OK:
		return "OK"
	case Created:
		return "Created"
	case BadRequest:
		return "Bad Request"
	case NotFound:
		return "Not Found"
	case InternalServerError:
		return "Internal Server Error"
	default:
		return ""
	}
}

const protocol = "HTTP/1.1 "

// lines hold prerendered status lines of every known code.
var lines = func() map[Code]string {
	known := []Code{OK, Created, BadRequest, NotFound, InternalServerError}
	m := make(map[Code]string, len(known))

	for _, code := range known {
		m[code] = protocol + strconv.Itoa(int(code)) + " " + string(Text(code)) + "\r\n"
	}

	return m
}()

// Line returns the whole status line, including the trailing CRLF. Unknown codes
// collapse into 500.
func Line(code Code) string {
	if line, found := lines[code]; found {
		return line
	}

	return lines[InternalServerError]
}
