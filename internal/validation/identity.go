// Package validation содержит функции валидации входных данных.
package validation

// MaxIdentityLength ограничивает длину идентификатора участника.
const MaxIdentityLength = 128

// IsValidIdentity проверяет идентификатор участника: от 1 до 128 символов
// из латинских букв, цифр и символов . _ : @ -.
func IsValidIdentity(id string) bool {
	if id == "" || len(id) > MaxIdentityLength {
		return false
	}

	for i := 0; i < len(id); i++ {
		ch := id[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '.', ch == '_', ch == ':', ch == '@', ch == '-':
		default:
			return false
		}
	}

	return true
}
