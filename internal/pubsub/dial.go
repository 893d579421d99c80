package pubsub

import (
	"google.golang.org/grpc"
)

// Dial connects to target and returns a Client whose calls always
// negotiate the JSON codec, using the given DialOptions in addition.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	callOpt := grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName))
	cc, err := grpc.NewClient(target, append([]grpc.DialOption{callOpt}, opts...)...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}
