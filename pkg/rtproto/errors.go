package rtproto

import "errors"

var errProtocolShape = errors.New("rtproto: prompt result must set exactly one of text or calls")
