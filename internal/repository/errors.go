package repository

import "errors"

var (
    // ErrLogUnavailable timeline log 后端故障；写路径必须重试直至成功或死信
    ErrLogUnavailable = errors.New("timeline log unavailable")
    // ErrProfileUnavailable profile store 故障；分级器按读写方向取保守默认
    ErrProfileUnavailable = errors.New("profile store unavailable")
    // ErrPostStoreUnavailable post store 故障
    ErrPostStoreUnavailable = errors.New("post store unavailable")
)
