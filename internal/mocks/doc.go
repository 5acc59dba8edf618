// Package mocks provides function-field test doubles for the service and auth
// interfaces consumed by the HTTP layer.
//
// Each mock exposes one Fn field per interface method. A nil Fn falls back to
// the mock's default return values:
//
//	jwt := &mocks.MockJWTService{
//	    ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
//	        return &auth.Claims{UserID: 7}, nil
//	    },
//	}
package mocks
