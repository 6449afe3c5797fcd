package room

import (
	"errors"

	"github.com/wfunc/rpsarena/models"
)

// 房间操作错误，错误文本即返回给客户端的原因码
var (
	ErrRoomNotFound        = errors.New("ROOM_NOT_FOUND")
	ErrRoomFull            = errors.New("ROOM_FULL")
	ErrNotMember           = errors.New("NOT_MEMBER")
	ErrDuplicateSubmission = errors.New("DUPLICATE_SUBMISSION")
	ErrRoundNotActive      = errors.New("ROUND_NOT_ACTIVE")
	ErrAlreadyActive       = errors.New("ALREADY_ACTIVE")
	ErrNotAllReady         = errors.New("NOT_ALL_READY")
	ErrAlreadyInRoom       = errors.New("ALREADY_IN_ROOM")
	ErrInvalidMove         = models.ErrInvalidMove
)
