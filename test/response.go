package test

import (
	"encoding/json"
	"testing"

	"face-attend-system/internal/global/response"

	"github.com/stretchr/testify/require"
)

func ErrorEqual(t *testing.T, expected *response.Error, resp response.ResponseBody) {
	t.Helper()
	require.Equal(t, expected.Code, resp.Code)
	require.Equal(t, expected.Message, resp.Msg)
}

// ErrorCode 只比较错误码，用于消息里带有动态内容的错误
func ErrorCode(t *testing.T, expected *response.Error, resp response.ResponseBody) {
	t.Helper()
	require.Equal(t, expected.Code, resp.Code, resp.Msg)
}

func NoError(t *testing.T, resp response.ResponseBody) {
	t.Helper()
	require.Equal(t, response.SuccessCode, resp.Code, resp.Msg)
}

// DecodeData 将响应中的 data 解析到 v
func DecodeData(t *testing.T, resp response.ResponseBody, v any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}
