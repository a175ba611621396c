package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
)

func TestResolveDeduplicatesAuthors(t *testing.T) {
	gateway := new(mockGateway)
	service := NewResolverService(gateway, discardLogger())

	messages := []domain.Message{msg(1, 11), msg(2, 22), msg(3, 11), msg(4, 33), msg(5, 22)}

	want := domain.AccountInfo{
		Raw: json.RawMessage(`{}`),
		Accounts: map[int64]domain.Account{
			11: {Name: "Alice"},
			22: {Name: "Bob"},
			33: {Name: "Carol"},
		},
	}
	gateway.On("GetAccountInfo", mock.Anything, []int64{11, 22, 33}).Return(want, nil).Once()

	info := service.Resolve(context.Background(), messages)

	assert.Equal(t, "Alice", info.Name(11))
	assert.Equal(t, "Carol", info.Name(33))
	gateway.AssertExpectations(t)
}

func TestResolveDegradesOnGatewayError(t *testing.T) {
	gateway := new(mockGateway)
	service := NewResolverService(gateway, discardLogger())

	gateway.On("GetAccountInfo", mock.Anything, mock.Anything).
		Return(nil, errors.New("boom")).Once()

	info := service.Resolve(context.Background(), []domain.Message{msg(1, 11)})

	// Degraded resolution still yields a usable value: placeholder names
	// and an empty raw payload.
	assert.Equal(t, domain.UnknownUserName, info.Name(11))
	assert.JSONEq(t, "{}", string(info.Raw))
}

func TestCollectAuthorIDsOrder(t *testing.T) {
	messages := []domain.Message{msg(1, 5), msg(2, 3), msg(3, 5), msg(4, 9)}
	assert.Equal(t, []int64{5, 3, 9}, collectAuthorIDs(messages))
}
