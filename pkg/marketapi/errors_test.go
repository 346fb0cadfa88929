package marketapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
)

func TestCodeForWrappedErrors(t *testing.T) {
	status, code := CodeFor(errors.Wrap(domain.ErrNotListed, "buy"))
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, CodeNotListed, code)

	status, code = CodeFor(errors.Wrapf(domain.ErrPayoutFailed, "%v", "reverted"))
	require.Equal(t, http.StatusBadGateway, status)
	require.Equal(t, CodePayoutFailed, code)

	// 外部调用失败带着的原因不改变归类
	cause := errors.New("recipient reverted")
	wrapped := fmt.Errorf("%w: %w", domain.ErrTransferFailed, fmt.Errorf("hook: %w", domain.ErrNotOwner))
	status, code = CodeFor(wrapped)
	require.Equal(t, http.StatusBadGateway, status)
	require.Equal(t, CodeTransferFailed, code)
	status, code = CodeFor(fmt.Errorf("%w: %w", domain.ErrPayoutFailed, cause))
	require.Equal(t, http.StatusBadGateway, status)
	require.Equal(t, CodePayoutFailed, code)

	status, code = CodeFor(errors.New("disk full"))
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, CodeInternal, code)
}

func TestErrorForCodeRoundTrip(t *testing.T) {
	for _, c := range codes {
		require.ErrorIs(t, ErrorForCode(c.code), c.err)
	}
	require.Nil(t, ErrorForCode(CodeInternal))
}
