package report

import (
	"context"
	"log/slog"

	"github.com/isseis/go-elfcheck/internal/elf32"
)

// LogSymbolTable emits the symbol table layout of f as a Debug record.
// Nothing is logged when logger has Debug disabled.
func LogSymbolTable(ctx context.Context, logger *slog.Logger, path string, f *elf32.File) {
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	info, err := f.SymbolTable()
	if err != nil {
		logger.DebugContext(ctx, "symbol table unavailable", slog.String("file", path), slog.Any("error", err))
		return
	}
	attrs := []slog.Attr{
		slog.String("file", path),
		slog.Int("symbol_table_size", int(info.SymbolTable.Size)),
		slog.Int("symbol_count", info.Count),
		slog.Int("symbol_table_offset", int(info.SymbolTable.Offset)),
		slog.Int("string_table_offset", int(info.StringTable.Offset)),
	}
	if int(f.Header.ShStrIndex) < len(f.Sections) && f.Header.ShStrIndex != 0 {
		attrs = append(attrs, slog.Int("section_name_table_offset", int(f.Sections[f.Header.ShStrIndex].Offset)))
	}
	if info.Remainder != 0 {
		attrs = append(attrs, slog.Int("trailing_bytes", info.Remainder))
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "symbol table", attrs...)
}
