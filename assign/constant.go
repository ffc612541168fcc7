package assign

import (
	"errors"

	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger().WithField("module", "assign")

const (
	// 提取解时的零阈值
	EPS_VALUE = 1e-6
	// 需求满足的数值容差
	EPS_DEMAND = 1e-3
	// 容量约束饱和判定的松弛阈值
	EPS_SLACK = 1e-5
	// 整数性检查容差
	EPS_INT = 1e-3

	// 虚拟溢出车场
	OVERFLOW_ID       = "overflow"
	OVERFLOW_CAPACITY = 1_000_000_000

	// 错误信息里最多列出的实体数
	ERR_PREVIEW = 10
)

var (
	// 错误：某条线路与所有车场都不兼容
	ErrNoCompatibleDepot = errors.New("routes without any compatible depot")
	// 错误：未开启溢出车场时总需求超过总容量
	ErrCapacityDeficit = errors.New("total demand exceeds total capacity")
	// 错误：开启溢出车场但某条线路没有任何有限实车场成本作为定价基准
	ErrNoOverflowBaseline = errors.New("route has no finite real-depot cost to price overflow against")
)
