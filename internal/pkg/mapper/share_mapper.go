package mapper

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/go-viper/mapstructure/v2"
)

// ShareToMap 把分享记录转换为 redis 哈希
// 下载次数变化频繁，不进缓存; 最新值由 IncrementDownloadCount 返回
func ShareToMap(share *models.Share) map[string]any {
	return map[string]any{
		"ID":           share.ID,
		"ShareToken":   share.ShareToken,
		"UserID":       share.UserID,
		"FileID":       derefString(share.FileID),
		"FolderID":     derefString(share.FolderID),
		"PasswordHash": derefString(share.PasswordHash),
		"ExpiresAt":    formatTime(share.ExpiresAt),
		"CreatedAt":    share.CreatedAt.Format(time.RFC3339Nano),
		"UpdatedAt":    share.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// stringHook 把 redis 里取出的字符串转换回字段类型，空字符串对应 nil 指针或零值
func stringHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String {
		return data, nil
	}
	source := data.(string)

	if source == "" {
		if t.Kind() == reflect.Ptr {
			return nil, nil
		}
		return reflect.Zero(t).Interface(), nil
	}

	switch t {
	case reflect.TypeOf(time.Time{}), reflect.TypeOf(&time.Time{}):
		return time.Parse(time.RFC3339Nano, source)
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(source, 10, 64)
	}
	return data, nil
}

// MapToShare 把 redis 哈希还原为分享记录
func MapToShare(dataMap map[string]string) (*models.Share, error) {
	var share models.Share

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &share,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(stringHook),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create map decoder: %w", err)
	}
	if err := decoder.Decode(dataMap); err != nil {
		return nil, fmt.Errorf("failed to decode map to Share struct: %w", err)
	}
	if share.ID == "" || share.ShareToken == "" {
		return nil, fmt.Errorf("cached share is missing identity fields")
	}
	return &share, nil
}
