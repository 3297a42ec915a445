package rabbitmq

import "errors"

var errPublishNotAcked = errors.New("rabbitmq: broker returned a negative publisher confirm")
