package h2client

// Next is the remaining interceptor chain, called to continue processing.
type Next func(*Request) (*Response, error)

// Interceptor is a single link in the chain: it may inspect/modify req,
// call next to continue, inspect/modify the result, or short-circuit
// entirely. Composed by chaining function values rather than an interface
// registry or virtual dispatch (base spec §9 redesign note).
type Interceptor func(req *Request, next Next) (*Response, error)

// FailurePolicy selects how an interceptor's own panic-free error return is
// handled (base spec §7/§9 redesign note: modeled as an enumerated type
// selected at construction, not a runtime-checked sum type).
type FailurePolicy uint8

const (
	// Propagate surfaces the interceptor's error to the caller unchanged.
	Propagate FailurePolicy = iota
	// ConvertToResponse synthesizes a 500 response carrying the original
	// error as its Err field instead of failing the call.
	ConvertToResponse
	// IgnoreAndContinue suppresses the error and continues the chain with
	// the pre-interceptor request/next, as if the interceptor were absent.
	IgnoreAndContinue
)

// chain composes interceptors (outermost first) around a terminal
// RoundTrip function, applying policy to whichever interceptor's error
// triggers it.
func chain(interceptors []Interceptor, policy FailurePolicy, terminal Next) Next {
	next := terminal
	for i := len(interceptors) - 1; i >= 0; i-- {
		ic := interceptors[i]
		inner := next
		next = func(req *Request) (*Response, error) {
			resp, err := ic(req, inner)
			if err == nil {
				return resp, nil
			}
			switch policy {
			case ConvertToResponse:
				return &Response{StatusCode: 500, Err: err}, nil
			case IgnoreAndContinue:
				return inner(req)
			default:
				return resp, err
			}
		}
	}
	return next
}
