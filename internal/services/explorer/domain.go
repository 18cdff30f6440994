package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/repositories"
	"go.uber.org/zap"
)

const maxNameLength = 255

// TreeDomainService 目录树的结构性校验，不直接修改数据
type TreeDomainService interface {
	// CheckParent parentID 为 nil 时表示根目录，返回 nil
	CheckParent(ctx context.Context, userID string, parentID *string) (*models.Folder, error)
	// EnsureMovable 检查把 folderID 移到 newParentID 下不会形成环
	EnsureMovable(ctx context.Context, userID, folderID string, newParentID *string) error
	// CollectSubtree 返回以 rootID 为根的所有目录 ID (含自身，不区分删除状态)
	CollectSubtree(ctx context.Context, userID, rootID string) ([]string, error)
}

type treeDomainService struct {
	folderRepo repositories.FolderRepository
}

var _ TreeDomainService = (*treeDomainService)(nil)

// NewTreeDomainService 事务中使用时传入 WithTx 之后的仓储
func NewTreeDomainService(folderRepo repositories.FolderRepository) TreeDomainService {
	return &treeDomainService{folderRepo: folderRepo}
}

func (d *treeDomainService) CheckParent(ctx context.Context, userID string, parentID *string) (*models.Folder, error) {
	if parentID == nil {
		return nil, nil
	}
	parent, err := d.folderRepo.FindActiveByID(ctx, userID, *parentID)
	if err != nil {
		if errors.Is(err, xerr.ErrFolderNotFound) {
			logger.Warn("CheckParent: Parent folder not found", zap.String("userID", userID), zap.String("parentID", *parentID))
		}
		return nil, err
	}
	return parent, nil
}

// EnsureMovable 从新父目录沿祖先链向上走，遇到 folderID 说明目标在自己的子树里
func (d *treeDomainService) EnsureMovable(ctx context.Context, userID, folderID string, newParentID *string) error {
	if newParentID == nil {
		return nil
	}
	if *newParentID == folderID {
		return xerr.ErrCannotMoveIntoSelf
	}

	visited := make(map[string]struct{})
	current := newParentID
	for current != nil {
		if *current == folderID {
			return xerr.ErrCannotMoveIntoSubtree
		}
		if _, seen := visited[*current]; seen {
			logger.Error("EnsureMovable: Cycle detected in folder ancestry",
				zap.String("userID", userID),
				zap.String("folderID", folderID),
				zap.String("revisited", *current))
			return fmt.Errorf("ancestor walk revisited %s: %w", *current, xerr.ErrInvariantViolation)
		}
		visited[*current] = struct{}{}

		node, err := d.folderRepo.FindByID(ctx, userID, *current)
		if err != nil {
			return err
		}
		current = node.ParentID
	}
	return nil
}

// CollectSubtree 使用显式栈遍历，深层嵌套也不会增加调用栈
func (d *treeDomainService) CollectSubtree(ctx context.Context, userID, rootID string) ([]string, error) {
	ids := []string{rootID}
	visited := map[string]struct{}{rootID: {}}
	stack := []string{rootID}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := d.folderRepo.FindChildIDs(ctx, userID, []string{current})
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if _, seen := visited[child]; seen {
				logger.Error("CollectSubtree: Folder reachable twice", zap.String("rootID", rootID), zap.String("folderID", child))
				return nil, fmt.Errorf("subtree walk revisited %s: %w", child, xerr.ErrInvariantViolation)
			}
			visited[child] = struct{}{}
			ids = append(ids, child)
			stack = append(stack, child)
		}
	}
	return ids, nil
}

// NormalizeName 去掉首尾空白并校验名称
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "", name == ".", name == "..":
		return "", xerr.ErrFileNameInvalid
	case utf8.RuneCountInString(name) > maxNameLength:
		return "", xerr.ErrFileNameInvalid
	case strings.ContainsAny(name, "/\\\x00"):
		return "", xerr.ErrFileNameInvalid
	}
	return name, nil
}
