package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/storage"
	"github.com/3Eeeecho/supfile/internal/repositories"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

// ZipStreamer 把目录子树边遍历边压缩，通过 pipe 交给调用方读取
type ZipStreamer struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	storage    storage.StorageService
}

func NewZipStreamer(folderRepo repositories.FolderRepository, fileRepo repositories.FileRepository, storageService storage.StorageService) *ZipStreamer {
	return &ZipStreamer{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		storage:    storageService,
	}
}

// ArchiveName 下载时使用的文件名
func ArchiveName(folder *models.Folder) string {
	return folder.Name + ".zip"
}

// Stream 返回的 reader 关闭或 ctx 取消后，写入协程会退出
func (z *ZipStreamer) Stream(ctx context.Context, root *models.Folder) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		err := z.write(ctx, pw, root)
		if err != nil && !errors.Is(err, io.ErrClosedPipe) {
			logger.Error("Stream: Zip archive aborted", zap.String("folderID", root.ID), zap.Error(err))
		}
		pw.CloseWithError(err)
	}()
	return pr
}

type zipDir struct {
	folder models.Folder
	prefix string
}

func (z *ZipStreamer) write(ctx context.Context, w io.Writer, root *models.Folder) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	visited := map[string]struct{}{root.ID: {}}
	stack := []zipDir{{folder: *root, prefix: root.Name + "/"}}
	added, skipped := 0, 0

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, err := zw.CreateHeader(&zip.FileHeader{
			Name:     dir.prefix,
			Method:   zip.Store,
			Modified: dir.folder.UpdatedAt,
		}); err != nil {
			return fmt.Errorf("create folder entry %s: %w", dir.prefix, err)
		}

		files, err := z.fileRepo.FindActiveInFolders(ctx, root.UserID, []string{dir.folder.ID})
		if err != nil {
			return err
		}
		used := make(map[string]struct{}, len(files))
		for i := range files {
			name := uniqueEntryName(used, files[i].DisplayName())
			skippable, err := z.addFile(ctx, zw, dir.prefix+name, &files[i])
			if err != nil && !skippable {
				return err
			}
			if err != nil {
				skipped++
				logger.Warn("Stream: Skipping file in zip archive",
					zap.String("fileID", files[i].ID),
					zap.String("entry", dir.prefix+name),
					zap.Error(err))
				continue
			}
			added++
		}

		subfolders, err := z.folderRepo.FindChildren(ctx, root.UserID, &dir.folder.ID, false)
		if err != nil {
			return err
		}
		// 倒序入栈，出栈时按名称顺序
		for i := len(subfolders) - 1; i >= 0; i-- {
			sub := subfolders[i]
			if _, seen := visited[sub.ID]; seen {
				continue
			}
			visited[sub.ID] = struct{}{}
			stack = append(stack, zipDir{folder: sub, prefix: dir.prefix + uniqueEntryName(used, sub.Name) + "/"})
		}
	}

	logger.Info("Stream: Zip archive completed",
		zap.String("folderID", root.ID),
		zap.Int("filesAdded", added),
		zap.Int("filesSkipped", skipped))
	return zw.Close()
}

// addFile 返回 true 表示错误只影响当前文件，归档可以继续
func (z *ZipStreamer) addFile(ctx context.Context, zw *zip.Writer, entry string, file *models.File) (bool, error) {
	obj, err := z.storage.GetObject(ctx, file.Bucket, file.BlobPath)
	if err != nil {
		return true, err
	}
	defer obj.Reader.Close()

	entryWriter, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entry,
		Method:   zip.Deflate,
		Modified: file.UpdatedAt,
	})
	if err != nil {
		return false, fmt.Errorf("create entry %s: %w", entry, err)
	}
	// 条目头已经写出，读写任何一方失败归档都不再完整
	if _, err := io.Copy(entryWriter, obj.Reader); err != nil {
		return false, fmt.Errorf("write entry %s: %w", entry, err)
	}
	return false, nil
}

// uniqueEntryName 同一目录下重名时追加 " (n)"
func uniqueEntryName(used map[string]struct{}, name string) string {
	if _, taken := used[name]; !taken {
		used[name] = struct{}{}
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, counter, ext)
		if _, taken := used[candidate]; !taken {
			used[candidate] = struct{}{}
			return candidate
		}
	}
}
