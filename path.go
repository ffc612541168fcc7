package main

import (
	"fmt"
	"os"
	"strings"
)

// Path 输入表的位置：本地JSON文件或mongo的{db}.{col}
type Path struct {
	File string
	DB   string
	Coll string
}

func NewPath(filePathOrColl string) (*Path, error) {
	// 检查filePathOrColl是否作为文件存在
	if _, err := os.Stat(filePathOrColl); err == nil {
		return &Path{
			File: filePathOrColl,
		}, nil
	}
	dbDotColl := strings.TrimSpace(filePathOrColl)
	if dbDotColl == "" {
		return nil, fmt.Errorf("empty input path")
	}
	splitted := strings.Split(dbDotColl, ".")
	if len(splitted) != 2 {
		return nil, fmt.Errorf("dbDotColl is invalid: %s", dbDotColl)
	}
	return &Path{
		DB:   splitted[0],
		Coll: splitted[1],
	}, nil
}

func (p *Path) IsFile() bool {
	return p.File != ""
}

func (p *Path) String() string {
	if p.IsFile() {
		return p.File
	}
	return p.DB + "." + p.Coll
}
