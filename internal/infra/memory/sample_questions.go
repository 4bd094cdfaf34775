package memory

import "quiz-battle-service/internal/domain"

// SampleQuestionPools provides a small Vietnamese-history bank per difficulty; swap the
// loader for the Postgres-backed one in production.
func SampleQuestionPools() map[string][]domain.Question {
	return map[string][]domain.Question{
		"Easy": {
			q("easy-1", "Chiến thắng Điện Biên Phủ diễn ra vào năm nào?", "1954", "1945", "1954", "1968", "1975"),
			q("easy-2", "Ngô Quyền đánh bại quân Nam Hán năm 938 trên dòng sông nào?", "Sông Bạch Đằng", "Sông Hồng", "Sông Bạch Đằng", "Sông Như Nguyệt", "Sông Gianh"),
			q("easy-3", "Kinh đô thời Lý được đặt tên là gì?", "Thăng Long", "Hoa Lư", "Phú Xuân", "Thăng Long", "Cổ Loa"),
			q("easy-4", "Ai đọc bản Tuyên ngôn Độc lập ngày 2/9/1945?", "Hồ Chí Minh", "Võ Nguyên Giáp", "Hồ Chí Minh", "Phạm Văn Đồng", "Trường Chinh"),
			q("easy-5", "Vị vua đầu tiên của nhà Nguyễn là ai?", "Gia Long", "Minh Mạng", "Tự Đức", "Gia Long", "Bảo Đại"),
			q("easy-6", "Hai Bà Trưng khởi nghĩa chống lại triều đại phong kiến nào?", "Nhà Hán", "Nhà Đường", "Nhà Hán", "Nhà Tống", "Nhà Minh"),
		},
		"Medium": {
			q("medium-1", "Lý Công Uẩn dời đô từ Hoa Lư ra Đại La vào năm nào?", "1010", "1009", "1010", "1054", "1075"),
			q("medium-2", "Ai là tác giả của Bình Ngô đại cáo?", "Nguyễn Trãi", "Lê Lợi", "Nguyễn Trãi", "Lý Thường Kiệt", "Nguyễn Du"),
			q("medium-3", "Ba lần kháng chiến chống quân Mông - Nguyên diễn ra dưới triều đại nào?", "Nhà Trần", "Nhà Lý", "Nhà Trần", "Nhà Hồ", "Nhà Lê sơ"),
			q("medium-4", "Quang Trung đại phá quân Thanh vào năm nào?", "1789", "1771", "1785", "1789", "1802"),
			q("medium-5", "Khởi nghĩa Lam Sơn do ai lãnh đạo?", "Lê Lợi", "Lê Lợi", "Trần Quốc Tuấn", "Nguyễn Huệ", "Đinh Bộ Lĩnh"),
			q("medium-6", "Hiệp định Giơ-ne-vơ về Đông Dương được ký năm nào?", "1954", "1946", "1954", "1973", "1975"),
		},
		"Hard": {
			q("hard-1", "Bộ luật Hồng Đức được ban hành dưới thời vua nào?", "Lê Thánh Tông", "Lê Thái Tổ", "Lê Thánh Tông", "Lý Thái Tông", "Trần Nhân Tông"),
			q("hard-2", "Trận Chi Lăng năm 1427 tiêu diệt viện binh nhà Minh do tướng nào chỉ huy?", "Liễu Thăng", "Vương Thông", "Liễu Thăng", "Mộc Thạnh", "Trương Phụ"),
			q("hard-3", "Nhà Hồ đổi quốc hiệu thành gì?", "Đại Ngu", "Đại Việt", "Đại Cồ Việt", "Đại Ngu", "Đại Nam"),
			q("hard-4", "Hịch tướng sĩ là tác phẩm của ai?", "Trần Hưng Đạo", "Trần Quang Khải", "Trần Hưng Đạo", "Trần Thủ Độ", "Phạm Ngũ Lão"),
			q("hard-5", "Kinh đô của nhà Hồ được xây dựng ở đâu?", "Tây Đô", "Thăng Long", "Tây Đô", "Hoa Lư", "Phú Xuân"),
			q("hard-6", "Vua Minh Mạng đổi quốc hiệu thành Đại Nam vào năm nào?", "1838", "1804", "1820", "1838", "1858"),
		},
	}
}

func q(id, prompt, correct string, options ...string) domain.Question {
	return domain.Question{
		ID:            id,
		Prompt:        prompt,
		Options:       options,
		CorrectAnswer: correct,
	}
}
