package syncgroup

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunAndWait(t *testing.T) {
	sg := NewSyncGroup()
	var n atomic.Int32
	for i := 0; i < 5; i++ {
		sg.Add(func() { n.Add(1) })
	}
	sg.Add(nil)
	sg.Run()
	sg.Wait()
	require.Equal(t, int32(5), n.Load())

	// 已启动的函数不会被再次执行
	sg.Run()
	sg.Wait()
	require.Equal(t, int32(5), n.Load())

	sg.Go(func() { n.Add(10) })
	sg.Wait()
	require.Equal(t, int32(15), n.Load())
}
