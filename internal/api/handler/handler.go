package handler

import (
    "github.com/d60-Lab/home-timeline/config"
    "github.com/d60-Lab/home-timeline/internal/service"
)

// Handler 聚合各 API 依赖
type Handler struct {
    assembler  *service.Assembler
    publisher  *service.Publisher
    relService service.RelationshipService
    cfg        config.Timeline
}

func New(assembler *service.Assembler, publisher *service.Publisher, relService service.RelationshipService, cfg config.Timeline) *Handler {
    return &Handler{assembler: assembler, publisher: publisher, relService: relService, cfg: cfg}
}
