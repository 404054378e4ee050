package method

type Method uint8

const (
	Unknown Method = iota
	GET
	POST
)

// List contains all the supported HTTP methods. The server deliberately accepts only
// this subset, anything else is rejected at parsing time.
var List = []Method{GET, POST}

// Parse returns the method by its case-sensitive token, or Unknown.
func Parse(str string) Method {
	for _, method := range List {
		if method.String() == str {
			return method
		}
	}

	return Unknown
}

func (m Method) String() string {
	switch m {
	case GET:
		return "GET"
	case POST:
		return "POST"
	default:
		return "Unknown"
	}
}
