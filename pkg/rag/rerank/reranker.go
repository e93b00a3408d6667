package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/llm"
	"agentic-rag-be/pkg/rag/search"

	"golang.org/x/sync/errgroup"
)

type Reranker struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

func NewReranker(llmProvider llm.LLMProvider, log logger.ILogger) *Reranker {
	return &Reranker{
		llmProvider: llmProvider,
		logger:      log,
	}
}

type scoredID struct {
	ID       string  `json:"id"`
	NewScore float64 `json:"new_score"`
}

// Rerank asks the model to grade each document against the question and
// returns them sorted by grade. Documents the model leaves out score 0.
// When the model output is unusable the input comes back unchanged with a
// degraded outcome.
func (r *Reranker) Rerank(ctx context.Context, question string, docs []search.RetrievedDocument) ([]search.RetrievedDocument, search.Outcome) {
	if len(docs) == 0 {
		return []search.RetrievedDocument{}, search.OutcomeOK
	}

	prompt, err := buildPrompt(question, docs)
	if err != nil {
		r.logger.Error("RERANKER", "Failed to build rerank prompt", map[string]interface{}{"error": err.Error()})
		return docs, search.OutcomeDegraded
	}

	response, err := r.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.1))
	if err != nil {
		r.logger.Error("RERANKER", "Rerank call failed", map[string]interface{}{"error": err.Error()})
		return docs, search.OutcomeDegraded
	}

	var grades []scoredID
	if err := json.Unmarshal([]byte(llm.StripCodeFences(response)), &grades); err != nil {
		r.logger.Warn("RERANKER", "Unparseable rerank output, keeping original order", map[string]interface{}{
			"error": err.Error(), "raw": response,
		})
		return docs, search.OutcomeDegraded
	}

	scores := make(map[string]float64, len(grades))
	for _, g := range grades {
		scores[g.ID] = clamp01(g.NewScore)
	}

	out := make([]search.RetrievedDocument, len(docs))
	for i, d := range docs {
		d.NewScore = scores[d.ID]
		d.Reranked = true
		out[i] = d
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NewScore > out[j].NewScore })

	r.logger.Debug("RERANKER", "Documents reranked", map[string]interface{}{"count": len(out), "graded": len(grades)})
	return out, search.OutcomeOK
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

// RerankBoth grades the two corpora concurrently.
func (r *Reranker) RerankBoth(ctx context.Context, question string, user, admin []search.RetrievedDocument) ([]search.RetrievedDocument, []search.RetrievedDocument) {
	var rankedUser, rankedAdmin []search.RetrievedDocument

	var g errgroup.Group
	g.SetLimit(2)
	g.Go(func() error {
		rankedUser, _ = r.Rerank(ctx, question, user)
		return nil
	})
	g.Go(func() error {
		rankedAdmin, _ = r.Rerank(ctx, question, admin)
		return nil
	})
	_ = g.Wait()

	return rankedUser, rankedAdmin
}

type promptDoc struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

func buildPrompt(question string, docs []search.RetrievedDocument) (string, error) {
	items := make([]promptDoc, len(docs))
	for i, d := range docs {
		items[i] = promptDoc{ID: d.ID, Content: d.Content}
	}
	encoded, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", err
	}

	var prompt strings.Builder
	prompt.WriteString("### VAI TRÒ VÀ NHIỆM VỤ CHUYÊN SÂU ###\n")
	prompt.WriteString("Bạn là một hệ thống Phân loại và Xếp hạng Mức độ Liên quan (Relevance Classification and Ranking System) cực kỳ chính xác.\n")
	prompt.WriteString("Nhiệm vụ của bạn KHÔNG PHẢI là trả lời câu hỏi. Nhiệm vụ của bạn là ĐÁNH GIÁ và CHẤM ĐIỂM từng tài liệu dựa trên mức độ chúng giúp trả lời câu hỏi được cung cấp.\n\n")

	prompt.WriteString("### QUY TRÌNH SUY LUẬN (CHO MỖI TÀI LIỆU) ###\n")
	prompt.WriteString("1. Đọc kỹ và hiểu sâu [CÂU HỎI CỦA NGƯỜI DÙNG].\n")
	prompt.WriteString("2. Đọc kỹ nội dung của tài liệu đang xét.\n")
	prompt.WriteString("3. Tự đặt câu hỏi: \"Tài liệu này có chứa thông tin trực tiếp và đầy đủ để trả lời câu hỏi không? Hay nó chỉ cung cấp thông tin nền tảng? Hay nó gần như không liên quan?\".\n")
	prompt.WriteString("4. Dựa trên câu trả lời, chọn một điểm số từ [BẢNG CHẤM ĐIỂM] dưới đây.\n\n")

	prompt.WriteString("### BẢNG CHẤM ĐIỂM CHI TIẾT (SCORING RUBRIC) ###\n")
	prompt.WriteString("- **1.0 (Rất cao):** Tài liệu chứa câu trả lời trực tiếp, đầy đủ và rõ ràng cho câu hỏi.\n")
	prompt.WriteString("- **0.7 (Cao):** Tài liệu không trả lời thẳng nhưng chứa thông tin cốt lõi, gần như không thể thiếu để suy ra câu trả lời.\n")
	prompt.WriteString("- **0.4 (Trung bình):** Tài liệu có liên quan, đề cập đến các chủ đề hoặc từ khóa trong câu hỏi nhưng không đi vào chi tiết hoặc không trả lời trực tiếp.\n")
	prompt.WriteString("- **0.1 (Thấp):** Tài liệu có vẻ liên quan ở bề mặt (ví dụ: chung chủ đề) nhưng thực chất không hữu ích để trả lời câu hỏi.\n")
	prompt.WriteString("- **0.0 (Không liên quan):** Tài liệu nói về một chủ đề hoàn toàn khác.\n\n")

	prompt.WriteString("### QUY TẮC ĐỊNH DẠNG ĐẦU RA (OUTPUT FORMAT RULES) ###\n")
	prompt.WriteString("- Kết quả BẮT BUỘC phải là một chuỗi JSON duy nhất, là một danh sách các object.\n")
	prompt.WriteString("- Mỗi object BẮT BUỘC phải có hai key: \"id\" (dạng chuỗi, lấy từ input), và \"new_score\" (dạng số thực).\n")
	prompt.WriteString("- TUYỆT ĐỐI KHÔNG thêm bất kỳ văn bản, ghi chú, hay lời giải thích nào khác. Chỉ trả về chuỗi JSON.\n\n")

	prompt.WriteString("### VÍ DỤ MẪU (FEW-SHOT EXAMPLE) ###\n")
	prompt.WriteString("[VÍ DỤ ĐẦU VÀO]\n")
	prompt.WriteString("CÂU HỎI:\nLàm thế nào để tạo môi trường ảo trong Python?\n\n")
	prompt.WriteString("DANH SÁCH TÀI LIỆU:\n")
	prompt.WriteString("[\n  {\"id\": \"doc1\", \"content\": \"Để tạo môi trường ảo, hãy dùng lệnh `python -m venv myenv`.\"},\n")
	prompt.WriteString("  {\"id\": \"doc2\", \"content\": \"Python là một ngôn ngữ lập trình phổ biến.\"}\n]\n")
	prompt.WriteString("[VÍ DỤ KẾT QUẢ JSON]\n")
	prompt.WriteString("[\n  {\"id\": \"doc1\", \"new_score\": 1.0},\n  {\"id\": \"doc2\", \"new_score\": 0.1}\n]\n\n")

	prompt.WriteString("---\n[BẮT ĐẦU DỮ LIỆU THỰC TẾ]\n\n")
	prompt.WriteString("### DỮ LIỆU ĐẦU VÀO ###\n")
	prompt.WriteString(fmt.Sprintf("[CÂU HỎI]\n%s\n\n", question))
	prompt.WriteString(fmt.Sprintf("[DANH SÁCH TÀI LIỆU]\n%s\n\n", encoded))
	prompt.WriteString("### KẾT QUẢ JSON ###\n")

	return prompt.String(), nil
}
